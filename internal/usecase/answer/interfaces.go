package answer

import (
	"context"

	"github.com/futig/medrag/internal/entity"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]entity.Passage, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error)
}

type HistoryRepository interface {
	Get(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error)
	Append(ctx context.Context, sessionID string, turns ...entity.ConversationTurn) ([]entity.ConversationTurn, error)
	Delete(ctx context.Context, sessionID string) error
}
