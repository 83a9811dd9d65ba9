package ask

import (
	"context"

	"github.com/futig/medrag/internal/entity"
)

type AnswerUsecase interface {
	Ask(ctx context.Context, question string, k int) (*entity.AnswerResult, error)
	AskStream(ctx context.Context, question string, k int) (<-chan entity.Frame, error)
}
