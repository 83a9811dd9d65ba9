package evaluation

import (
	"context"

	"github.com/futig/medrag/internal/entity"
)

// Answerer runs one blocking question through the pipeline, in process or
// against a running server.
type Answerer interface {
	Ask(ctx context.Context, question string, k int) (*entity.AnswerResult, error)
}

// Tracker records runs with their params and metrics.
type Tracker interface {
	CreateRun(ctx context.Context, name string) (*entity.EvalRun, error)
	LogParams(ctx context.Context, runID string, params map[string]string) error
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error
	FinishRun(ctx context.Context, runID string, status entity.RunStatus) error
}
