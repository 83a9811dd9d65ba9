package chat

import (
	"context"

	"github.com/futig/medrag/internal/entity"
)

type ChatUsecase interface {
	Chat(ctx context.Context, sessionID, question string, k int) (*entity.ChatResult, error)
	ChatStream(ctx context.Context, sessionID, question string, k int) (<-chan entity.Frame, error)
	History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error)
	ClearHistory(ctx context.Context, sessionID string) error
}
