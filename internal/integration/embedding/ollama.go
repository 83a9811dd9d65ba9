package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder turns text into vectors with a local Ollama model.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

func NewOllamaEmbedder(cfg config.EmbedderConfig) (*OllamaEmbedder, error) {
	client, err := NewOllamaClient(cfg.HTTPClientConfig)
	if err != nil {
		return nil, err
	}

	return &OllamaEmbedder{
		client: client,
		model:  cfg.Model,
	}, nil
}

// NewOllamaClient builds an Ollama API client on top of our tuned HTTP client.
func NewOllamaClient(cfg config.HTTPClientConfig) (*api.Client, error) {
	raw := cfg.Url
	if raw == "" {
		raw = defaultOllamaURL
	}

	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", raw, err)
	}

	return api.NewClient(base, common.NewBearerClient(cfg)), nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, errors.New("no embedding returned by ollama")
	}

	ctxzap.Debug(ctx, "query embedded", zap.String("model", e.model), zap.Int("dim", len(resp.Embeddings[0])))

	return resp.Embeddings[0], nil
}

// Ping checks that the Ollama server answers.
func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
