package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/futig/medrag/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	passages []entity.Passage
	err      error
	lastK    int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]entity.Passage, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func passages(n int) []entity.Passage {
	out := make([]entity.Passage, n)
	for i := range out {
		out[i] = entity.Passage{Text: "passage", Source: "book.pdf", Locator: entity.PageLocator(i + 1)}
	}
	return out
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("non-positive k returns empty without index call", func(t *testing.T) {
		emb := &fakeEmbedder{}
		idx := &fakeIndex{passages: passages(3)}
		r := NewRetriever(emb, idx, zap.NewNop())

		got, err := r.Retrieve(ctx, "diabetes", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, emb.calls)
		assert.Zero(t, idx.lastK)
	})

	t.Run("truncates to k and keeps order", func(t *testing.T) {
		idx := &fakeIndex{passages: passages(5)}
		r := NewRetriever(&fakeEmbedder{}, idx, zap.NewNop())

		got, err := r.Retrieve(ctx, "diabetes", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, entity.PageLocator(1), got[0].Locator)
		assert.Equal(t, entity.PageLocator(2), got[1].Locator)
		assert.Equal(t, 2, idx.lastK)
	})

	t.Run("zero matches is not an error", func(t *testing.T) {
		r := NewRetriever(&fakeEmbedder{}, &fakeIndex{}, zap.NewNop())

		got, err := r.Retrieve(ctx, "unrelated", 4)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("index failure is retrieval unavailable", func(t *testing.T) {
		r := NewRetriever(&fakeEmbedder{}, &fakeIndex{err: errors.New("connection refused")}, zap.NewNop())

		_, err := r.Retrieve(ctx, "diabetes", 4)
		require.Error(t, err)
		assert.ErrorIs(t, err, entity.ErrRetrievalUnavailable)
	})

	t.Run("embedder failure is retrieval unavailable", func(t *testing.T) {
		r := NewRetriever(&fakeEmbedder{err: errors.New("model not loaded")}, &fakeIndex{}, zap.NewNop())

		_, err := r.Retrieve(ctx, "diabetes", 4)
		assert.ErrorIs(t, err, entity.ErrRetrievalUnavailable)
	})
}

func TestMockRetriever_Retrieve(t *testing.T) {
	r := NewMockRetriever(zap.NewNop())
	ctx := context.Background()

	got, err := r.Retrieve(ctx, "What are the symptoms of diabetes and its treatment with metformin?", 4)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 4)

	pages := make([]entity.Locator, 0, len(got))
	for _, p := range got {
		pages = append(pages, p.Locator)
	}
	assert.Contains(t, pages, entity.PageLocator(12))
	assert.Contains(t, pages, entity.PageLocator(45))

	got, err = r.Retrieve(ctx, "quantum chromodynamics", 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Retrieve(ctx, "diabetes", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
