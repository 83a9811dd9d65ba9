package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const (
	backendOllama    = "ollama"
	defaultOllamaURL = "http://localhost:11434"
)

// OllamaConnector generates answers with a locally served Ollama model.
type OllamaConnector struct {
	client *api.Client
	config config.LLMConfig
	logger *zap.Logger
}

func NewOllamaConnector(cfg config.LLMConfig, logger *zap.Logger) (*OllamaConnector, error) {
	raw := cfg.Url
	if raw == "" {
		raw = defaultOllamaURL
	}

	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", raw, err)
	}

	return &OllamaConnector{
		client: api.NewClient(base, common.NewGenerationBearerClient(cfg)),
		config: cfg,
		logger: logger,
	}, nil
}

func (c *OllamaConnector) request(prompt string, stream bool) *api.GenerateRequest {
	return &api.GenerateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": c.config.Temperature,
			"num_predict": c.config.MaxTokens,
		},
	}
}

func (c *OllamaConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Debug(ctx, "generating answer via ollama", zap.String("model", c.config.Model))

	var sb strings.Builder
	err := c.client.Generate(ctx, c.request(prompt, false), func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", generationError(backendOllama, err)
	}

	return sb.String(), nil
}

func (c *OllamaConnector) GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error) {
	ctxzap.Debug(ctx, "streaming answer via ollama", zap.String("model", c.config.Model))

	return pump(ctx, backendOllama, func(emit emitFunc) error {
		return c.client.Generate(ctx, c.request(prompt, true), func(resp api.GenerateResponse) error {
			if !emit(resp.Response) {
				return ctx.Err()
			}
			return nil
		})
	}), nil
}

func (c *OllamaConnector) Ping(ctx context.Context) error {
	return c.client.Heartbeat(ctx)
}

func (c *OllamaConnector) Close() error {
	return nil
}
