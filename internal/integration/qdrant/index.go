package qdrant

import (
	"context"
	"fmt"
	"strconv"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// Payload keys written by the ingestion job. Points produced by LangChain
// keep the text under page_content and the rest under metadata.
const (
	keyText        = "text"
	keyPageContent = "page_content"
	keySource      = "source"
	keyPage        = "page"
	keyMetadata    = "metadata"
)

// Index searches passages stored as points of a Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
}

func NewIndex(cfg config.IndexConfig) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Index{
		client:     client,
		collection: cfg.QdrantCollection,
	}, nil
}

func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]entity.Passage, error) {
	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", i.collection, err)
	}

	passages := make([]entity.Passage, 0, len(points))
	for _, p := range points {
		passages = append(passages, passageFromPayload(p.GetPayload()))
	}

	ctxzap.Debug(ctx, "qdrant search done", zap.String("collection", i.collection), zap.Int("hits", len(passages)))

	return passages, nil
}

// Ping fails when the server is down or the collection was never created.
func (i *Index) Ping(ctx context.Context) error {
	if _, err := i.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}

	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", i.collection, err)
	}
	if !exists {
		return fmt.Errorf("collection %s does not exist", i.collection)
	}

	return nil
}

func (i *Index) Close() error {
	return i.client.Close()
}

func passageFromPayload(payload map[string]*qdrant.Value) entity.Passage {
	fields := payload
	if meta := payload[keyMetadata].GetStructValue(); meta != nil {
		fields = meta.GetFields()
	}

	text := payload[keyText].GetStringValue()
	if text == "" {
		text = payload[keyPageContent].GetStringValue()
	}

	return entity.Passage{
		Text:    text,
		Source:  fields[keySource].GetStringValue(),
		Locator: locatorFromValue(fields[keyPage]),
	}
}

func locatorFromValue(v *qdrant.Value) entity.Locator {
	if v == nil {
		return entity.Locator{}
	}

	switch kind := v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return entity.PageLocator(int(kind.IntegerValue))
	case *qdrant.Value_DoubleValue:
		return entity.PageLocator(int(kind.DoubleValue))
	case *qdrant.Value_StringValue:
		if page, err := strconv.Atoi(kind.StringValue); err == nil {
			return entity.PageLocator(page)
		}
	}

	return entity.Locator{}
}
