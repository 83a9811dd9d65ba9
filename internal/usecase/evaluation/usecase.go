package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/usecase/answer"
	"go.uber.org/zap"
)

const (
	defaultPreviewLength = 300
	defaultResultsPath   = "batch_eval_results.json"
	singleRunNameLength  = 20
)

type Options struct {
	// ResultsPath is where batch results are written.
	ResultsPath string
	// PreviewLength caps answer previews in the results, in runes.
	PreviewLength int
}

// Usecase evaluates the answer pipeline and records runs in a tracker.
type Usecase struct {
	answerer Answerer
	tracker  Tracker
	opts     Options
	logger   *zap.Logger
}

func NewUsecase(answerer Answerer, tracker Tracker, opts Options, logger *zap.Logger) *Usecase {
	if opts.ResultsPath == "" {
		opts.ResultsPath = defaultResultsPath
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = defaultPreviewLength
	}

	return &Usecase{
		answerer: answerer,
		tracker:  tracker,
		opts:     opts,
		logger:   logger,
	}
}

type SingleReport struct {
	RunID            string
	Result           *entity.AnswerResult
	RetrievalQuality float64
	// WallTime is measured around the whole call, overhead included.
	WallTime float64
}

type BatchSummary struct {
	TotalQuestions      int     `json:"total_questions"`
	AvgRetrievalTime    float64 `json:"avg_retrieval_time"`
	AvgGenerationTime   float64 `json:"avg_generation_time"`
	AvgTotalTime        float64 `json:"avg_total_time"`
	AvgRetrievalQuality float64 `json:"avg_retrieval_quality"`
	RefusalRate         float64 `json:"refusal_rate"`
}

type BatchReport struct {
	RunID       string
	Results     []entity.EvalResult
	Summary     BatchSummary
	ResultsPath string
}

// EvaluateSingle answers one question and records its timings.
func (uc *Usecase) EvaluateSingle(ctx context.Context, question string, k int) (report *SingleReport, err error) {
	run, err := uc.tracker.CreateRun(ctx, "Eval-"+answer.Truncate(question, singleRunNameLength))
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	defer func() { uc.finish(ctx, run.ID, err) }()

	if err := uc.tracker.LogParams(ctx, run.ID, map[string]string{
		"k_value":         strconv.Itoa(k),
		"evaluation_type": "single_query_test",
	}); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := uc.answerer.Ask(ctx, question, k)
	if err != nil {
		uc.logger.Error("Evaluation failed", zap.String("run_id", run.ID), zap.Error(err))
		return nil, fmt.Errorf("ask: %w", err)
	}
	wall := entity.RoundSeconds(time.Since(start).Seconds())

	quality := RetrievalQuality(question, retrievedTexts(result))

	if err := uc.tracker.LogMetrics(ctx, run.ID, map[string]float64{
		"retrieval_time":    result.Timing.RetrievalTime,
		"generation_time":   result.Timing.GenerationTime,
		"total_time":        wall,
		"retrieval_quality": quality,
	}); err != nil {
		return nil, err
	}

	uc.logger.Info("Evaluation successful",
		zap.String("run_id", run.ID),
		zap.Float64("total_time", wall),
		zap.Float64("retrieval_quality", quality),
	)

	return &SingleReport{
		RunID:            run.ID,
		Result:           result,
		RetrievalQuality: quality,
		WallTime:         wall,
	}, nil
}

// EvaluateBatch answers every question of the dataset in order, records the
// averages and writes the per-question results file. The first failing
// question fails the whole run.
func (uc *Usecase) EvaluateBatch(ctx context.Context, datasetPath string, k int) (report *BatchReport, err error) {
	questions, err := LoadDataset(datasetPath)
	if err != nil {
		return nil, err
	}

	run, err := uc.tracker.CreateRun(ctx, "Batch-Evaluation")
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	defer func() { uc.finish(ctx, run.ID, err) }()

	if err := uc.tracker.LogParams(ctx, run.ID, map[string]string{
		"k_value":         strconv.Itoa(k),
		"evaluation_mode": "batch",
		"dataset":         datasetPath,
	}); err != nil {
		return nil, err
	}

	results := make([]entity.EvalResult, 0, len(questions))
	for i, q := range questions {
		uc.logger.Info("Evaluating question",
			zap.Int("index", i+1),
			zap.Int("total", len(questions)),
			zap.String("question", q.Question),
		)

		result, err := uc.answerer.Ask(ctx, q.Question, k)
		if err != nil {
			uc.logger.Error("Batch evaluation failed", zap.String("run_id", run.ID), zap.Error(err))
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}

		results = append(results, entity.EvalResult{
			Question:         q.Question,
			AnswerPreview:    answer.Truncate(result.Answer, uc.opts.PreviewLength),
			Sources:          result.Sources,
			Timing:           result.Timing,
			RetrievalQuality: RetrievalQuality(q.Question, retrievedTexts(result)),
			Refused:          result.Refused,
		})
	}

	summary := Summarize(results)

	if err := uc.tracker.LogMetrics(ctx, run.ID, map[string]float64{
		"avg_retrieval_time":    summary.AvgRetrievalTime,
		"avg_generation_time":   summary.AvgGenerationTime,
		"avg_total_time":        summary.AvgTotalTime,
		"avg_retrieval_quality": summary.AvgRetrievalQuality,
		"refusal_rate":          summary.RefusalRate,
		"total_questions":       float64(summary.TotalQuestions),
	}); err != nil {
		return nil, err
	}

	if err := writeResults(uc.opts.ResultsPath, results); err != nil {
		return nil, err
	}

	if err := uc.tracker.LogParams(ctx, run.ID, map[string]string{
		"results_artifact": uc.opts.ResultsPath,
	}); err != nil {
		return nil, err
	}

	return &BatchReport{
		RunID:       run.ID,
		Results:     results,
		Summary:     summary,
		ResultsPath: uc.opts.ResultsPath,
	}, nil
}

// Summarize averages the per-question results. Every figure is rounded to
// 3 decimals.
func Summarize(results []entity.EvalResult) BatchSummary {
	n := len(results)
	if n == 0 {
		return BatchSummary{}
	}

	var retrieval, generation, total, quality float64
	refused := 0
	for _, r := range results {
		retrieval += r.Timing.RetrievalTime
		generation += r.Timing.GenerationTime
		total += r.Timing.TotalTime
		quality += r.RetrievalQuality
		if r.Refused {
			refused++
		}
	}

	count := float64(n)
	return BatchSummary{
		TotalQuestions:      n,
		AvgRetrievalTime:    round3(retrieval / count),
		AvgGenerationTime:   round3(generation / count),
		AvgTotalTime:        round3(total / count),
		AvgRetrievalQuality: round3(quality / count),
		RefusalRate:         round3(float64(refused) / count),
	}
}

func (uc *Usecase) finish(ctx context.Context, runID string, runErr error) {
	status := entity.RunStatusFinished
	if runErr != nil {
		status = entity.RunStatusFailed
	}

	// The run must be closed even when ctx was cancelled mid-run.
	if err := uc.tracker.FinishRun(context.WithoutCancel(ctx), runID, status); err != nil {
		uc.logger.Warn("Failed to finish run", zap.String("run_id", runID), zap.Error(err))
	}
}

func writeResults(path string, results []entity.EvalResult) error {
	data, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	return nil
}
