package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/integration/common"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(cfg config.EmbedderConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: NewOpenAIClient(cfg.HTTPClientConfig),
		model:  cfg.Model,
	}
}

// NewOpenAIClient builds a go-openai client. A non-empty Url points it at
// an OpenAI-compatible server instead of api.openai.com.
func NewOpenAIClient(cfg config.HTTPClientConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.Url != "" {
		clientCfg.BaseURL = cfg.Url
	}
	clientCfg.HTTPClient = common.NewSDKClient(cfg)

	return openai.NewClientWithConfig(clientCfg)
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned by openai")
	}

	return rsp.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Ping(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai list models: %w", err)
	}
	return nil
}
