package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/futig/medrag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index returns the k passages nearest to vector, most similar first.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]entity.Passage, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Retriever embeds a query and looks it up in a passage index.
// One instance is shared by all requests.
type Retriever struct {
	embedder Embedder
	index    Index
	logger   *zap.Logger
}

func NewRetriever(embedder Embedder, index Index, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]entity.Passage, error) {
	if k <= 0 {
		return []entity.Passage{}, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", entity.ErrRetrievalUnavailable, err)
	}

	passages, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search index: %w", entity.ErrRetrievalUnavailable, err)
	}

	if len(passages) > k {
		passages = passages[:k]
	}
	if passages == nil {
		passages = []entity.Passage{}
	}

	ctxzap.Debug(ctx, "passages retrieved", zap.Int("k", k), zap.Int("count", len(passages)))

	return passages, nil
}

// Ping checks the embedder and the index when they support it.
func (r *Retriever) Ping(ctx context.Context) error {
	var errs []error
	if p, ok := r.embedder.(pinger); ok {
		errs = append(errs, p.Ping(ctx))
	}
	if p, ok := r.index.(pinger); ok {
		errs = append(errs, p.Ping(ctx))
	}
	return errors.Join(errs...)
}

func (r *Retriever) Close() error {
	if c, ok := r.index.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
