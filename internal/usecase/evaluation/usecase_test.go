package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnswerer struct {
	answers map[string]*entity.AnswerResult
	failOn  string
	calls   []string
}

func (f *fakeAnswerer) Ask(_ context.Context, question string, _ int) (*entity.AnswerResult, error) {
	f.calls = append(f.calls, question)
	if question == f.failOn {
		return nil, entity.ErrRetrievalUnavailable
	}
	if r, ok := f.answers[question]; ok {
		return r, nil
	}
	return &entity.AnswerResult{
		Answer:  entity.RefusalSentence,
		Sources: []entity.Source{},
		Refused: true,
	}, nil
}

func newTracker(t *testing.T) *repository.TrackingSQLite {
	t.Helper()
	tracker, err := repository.NewTrackingSQLite(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval_questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

var diabetesAnswer = &entity.AnswerResult{
	Answer:  "According to the medical reference [Page 12], " + strings.Repeat("x", 400),
	Sources: []entity.Source{{Source: "medical_book.pdf", Page: entity.PageLocator(12)}},
	Timing:  entity.Timing{RetrievalTime: 0.2, GenerationTime: 1.0, TotalTime: 1.2},
	Passages: []entity.Passage{
		{Text: "Classic symptoms of diabetes include polyuria.", Source: "medical_book.pdf", Locator: entity.PageLocator(12)},
	},
}

func TestUsecase_EvaluateSingle(t *testing.T) {
	tracker := newTracker(t)
	answerer := &fakeAnswerer{answers: map[string]*entity.AnswerResult{"symptoms of diabetes": diabetesAnswer}}
	uc := NewUsecase(answerer, tracker, Options{}, zap.NewNop())

	report, err := uc.EvaluateSingle(context.Background(), "symptoms of diabetes", 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.RetrievalQuality)

	run, err := tracker.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, run.Status)
	assert.Equal(t, "Eval-symptoms of diabetes", run.Name)
	assert.Equal(t, "4", run.Params["k_value"])
	assert.Equal(t, "single_query_test", run.Params["evaluation_type"])
	assert.Equal(t, 0.2, run.Metrics["retrieval_time"])
	assert.Equal(t, 1.0, run.Metrics["generation_time"])
	assert.Contains(t, run.Metrics, "total_time")
}

func TestUsecase_EvaluateSingle_FailureMarksRun(t *testing.T) {
	tracker := newTracker(t)
	uc := NewUsecase(&fakeAnswerer{failOn: "q"}, tracker, Options{}, zap.NewNop())

	_, err := uc.EvaluateSingle(context.Background(), "q", 4)
	require.ErrorIs(t, err, entity.ErrRetrievalUnavailable)

	runs, err := tracker.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entity.RunStatusFailed, runs[0].Status)
}

func TestUsecase_EvaluateBatch(t *testing.T) {
	tracker := newTracker(t)
	answerer := &fakeAnswerer{answers: map[string]*entity.AnswerResult{"symptoms of diabetes": diabetesAnswer}}
	resultsPath := filepath.Join(t.TempDir(), "batch_eval_results.json")
	uc := NewUsecase(answerer, tracker, Options{ResultsPath: resultsPath}, zap.NewNop())

	dataset := writeDataset(t, "- question: symptoms of diabetes\n- question: unrelated question\n")

	report, err := uc.EvaluateBatch(context.Background(), dataset, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"symptoms of diabetes", "unrelated question"}, answerer.calls)
	assert.Equal(t, BatchSummary{
		TotalQuestions:      2,
		AvgRetrievalTime:    0.1,
		AvgGenerationTime:   0.5,
		AvgTotalTime:        0.6,
		AvgRetrievalQuality: 0.5,
		RefusalRate:         0.5,
	}, report.Summary)

	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	var written []entity.EvalResult
	require.NoError(t, json.Unmarshal(data, &written))
	require.Len(t, written, 2)
	assert.Equal(t, 300, len([]rune(written[0].AnswerPreview)))
	assert.True(t, written[1].Refused)

	run, err := tracker.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, run.Status)
	assert.Equal(t, "batch", run.Params["evaluation_mode"])
	assert.Equal(t, dataset, run.Params["dataset"])
	assert.Equal(t, resultsPath, run.Params["results_artifact"])
	assert.Equal(t, 2.0, run.Metrics["total_questions"])
	assert.Equal(t, 0.5, run.Metrics["refusal_rate"])
}

func TestUsecase_EvaluateBatch_StopsOnFailure(t *testing.T) {
	tracker := newTracker(t)
	answerer := &fakeAnswerer{failOn: "second"}
	resultsPath := filepath.Join(t.TempDir(), "results.json")
	uc := NewUsecase(answerer, tracker, Options{ResultsPath: resultsPath}, zap.NewNop())

	_, err := uc.EvaluateBatch(context.Background(), writeDataset(t, "- question: first\n- question: second\n- question: third\n"), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrRetrievalUnavailable))
	assert.Equal(t, []string{"first", "second"}, answerer.calls)

	_, statErr := os.Stat(resultsPath)
	assert.True(t, os.IsNotExist(statErr))

	runs, err := tracker.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entity.RunStatusFailed, runs[0].Status)
}

func TestUsecase_EvaluateBatch_MissingDataset(t *testing.T) {
	tracker := newTracker(t)
	uc := NewUsecase(&fakeAnswerer{}, tracker, Options{}, zap.NewNop())

	_, err := uc.EvaluateBatch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), 4)
	require.Error(t, err)

	runs, err := tracker.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, BatchSummary{}, Summarize(nil))
}
