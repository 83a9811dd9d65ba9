package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const backendAnthropic = "anthropic"

type AnthropicConnector struct {
	client anthropic.Client
	config config.LLMConfig
	logger *zap.Logger
}

func NewAnthropicConnector(cfg config.LLMConfig, logger *zap.Logger) *AnthropicConnector {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Token),
		option.WithHTTPClient(common.NewGenerationClient(cfg)),
	}
	if cfg.Url != "" {
		opts = append(opts, option.WithBaseURL(cfg.Url))
	}

	return &AnthropicConnector{
		client: anthropic.NewClient(opts...),
		config: cfg,
		logger: logger,
	}
}

func (c *AnthropicConnector) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(float64(c.config.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

func (c *AnthropicConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Debug(ctx, "generating answer via anthropic", zap.String("model", c.config.Model))

	rsp, err := c.client.Messages.New(ctx, c.params(prompt))
	if err != nil {
		return "", generationError(backendAnthropic, err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	if b.Len() == 0 {
		return "", generationError(backendAnthropic, errors.New("no text in response"))
	}

	return b.String(), nil
}

func (c *AnthropicConnector) GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(prompt))

	return pump(ctx, backendAnthropic, func(emit emitFunc) error {
		defer stream.Close()

		for stream.Next() {
			event, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := event.Delta.AsAny().(anthropic.TextDelta)
			if !ok {
				continue
			}
			if !emit(delta.Text) {
				return ctx.Err()
			}
		}

		return stream.Err()
	}), nil
}

func (c *AnthropicConnector) Close() error {
	return nil
}
