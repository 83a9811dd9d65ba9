package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const backendOpenAI = "openai"

// OpenAIConnector talks to OpenAI or any server exposing its chat API.
type OpenAIConnector struct {
	client *openai.Client
	config config.LLMConfig
	logger *zap.Logger
}

func NewOpenAIConnector(cfg config.LLMConfig, logger *zap.Logger) *OpenAIConnector {
	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.Url != "" {
		clientCfg.BaseURL = cfg.Url
	}
	clientCfg.HTTPClient = common.NewGenerationClient(cfg)

	return &OpenAIConnector{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: logger,
	}
}

func (c *OpenAIConnector) request(prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
}

func (c *OpenAIConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Debug(ctx, "generating answer via openai", zap.String("model", c.config.Model))

	rsp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, false))
	if err != nil {
		return "", generationError(backendOpenAI, err)
	}

	if len(rsp.Choices) == 0 {
		return "", generationError(backendOpenAI, errors.New("no choices in response"))
	}

	return rsp.Choices[0].Message.Content, nil
}

func (c *OpenAIConnector) GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(prompt, true))
	if err != nil {
		return nil, generationError(backendOpenAI, err)
	}

	return pump(ctx, backendOpenAI, func(emit emitFunc) error {
		defer stream.Close()

		for {
			rsp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("receive chunk: %w", err)
			}
			if len(rsp.Choices) == 0 {
				continue
			}
			if !emit(rsp.Choices[0].Delta.Content) {
				return ctx.Err()
			}
		}
	}), nil
}

func (c *OpenAIConnector) Ping(ctx context.Context) error {
	_, err := c.client.ListModels(ctx)
	return err
}

func (c *OpenAIConnector) Close() error {
	return nil
}
