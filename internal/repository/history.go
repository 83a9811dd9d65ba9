package repository

import (
	"context"

	"github.com/futig/medrag/internal/entity"
)

// HistoryRepository persists the ordered turns of chat sessions. Every write
// restarts the session TTL.
type HistoryRepository interface {
	Get(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error)
	Append(ctx context.Context, sessionID string, turns ...entity.ConversationTurn) ([]entity.ConversationTurn, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ HistoryRepository = &HistoryRedis{}
	_ HistoryRepository = &HistoryMemory{}
)
