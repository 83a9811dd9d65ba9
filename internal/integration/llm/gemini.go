package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/google/generative-ai-go/genai"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const backendGemini = "gemini"

type GeminiConnector struct {
	client *genai.Client
	model  *genai.GenerativeModel
	config config.LLMConfig
	logger *zap.Logger
}

func NewGeminiConnector(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiConnector, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Token))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))

	return &GeminiConnector{
		client: client,
		model:  model,
		config: cfg,
		logger: logger,
	}, nil
}

func (c *GeminiConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Debug(ctx, "generating answer via gemini", zap.String("model", c.config.Model))

	rsp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", generationError(backendGemini, err)
	}

	text := responseText(rsp)
	if text == "" {
		return "", generationError(backendGemini, errors.New("no text in response"))
	}

	return text, nil
}

func (c *GeminiConnector) GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error) {
	iter := c.model.GenerateContentStream(ctx, genai.Text(prompt))

	return pump(ctx, backendGemini, func(emit emitFunc) error {
		for {
			rsp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return err
			}
			if !emit(responseText(rsp)) {
				return ctx.Err()
			}
		}
	}), nil
}

func (c *GeminiConnector) Close() error {
	return c.client.Close()
}

func responseText(rsp *genai.GenerateContentResponse) string {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
