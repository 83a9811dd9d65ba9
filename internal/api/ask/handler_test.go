package ask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	result *entity.AnswerResult
	frames []entity.Frame
	err    error

	gotQuestion string
	gotK        int
}

func (f *fakeUsecase) Ask(_ context.Context, question string, k int) (*entity.AnswerResult, error) {
	f.gotQuestion, f.gotK = question, k
	return f.result, f.err
}

func (f *fakeUsecase) AskStream(_ context.Context, question string, k int) (<-chan entity.Frame, error) {
	f.gotQuestion, f.gotK = question, k
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan entity.Frame, len(f.frames))
	for _, fr := range f.frames {
		ch <- fr
	}
	close(ch)
	return ch, nil
}

func newRouter(uc AnswerUsecase) http.Handler {
	r := chi.NewRouter()
	v := validator.NewValidator(config.RAGConfig{DefaultTopK: 4, MaxTopK: 20})
	RegisterRoutes(r, NewHandler(uc, v), func(next http.Handler) http.Handler { return next })
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Ask(t *testing.T) {
	uc := &fakeUsecase{result: &entity.AnswerResult{
		Answer:  "Metformin is first-line [Page 45].",
		Sources: []entity.Source{{Source: "medical_book.pdf", Page: entity.PageLocator(45)}},
		Timing:  entity.Timing{RetrievalTime: 0.1, GenerationTime: 0.2, TotalTime: 0.3},
	}}

	rec := do(newRouter(uc), http.MethodPost, "/ask", `{"question":"What is metformin?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "What is metformin?", uc.gotQuestion)
	assert.Equal(t, 4, uc.gotK)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Metformin is first-line [Page 45].", got["answer"])
	assert.Equal(t, false, got["refused"])
	assert.Len(t, got["sources"], 1)
}

func TestHandler_Ask_ExplicitK(t *testing.T) {
	uc := &fakeUsecase{result: &entity.AnswerResult{}}

	rec := do(newRouter(uc), http.MethodPost, "/ask", `{"question":"q","k":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, uc.gotK)
}

func TestHandler_Ask_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "question=hi"},
		{name: "missing question", body: `{}`},
		{name: "blank question", body: `{"question":"   "}`},
		{name: "k too small", body: `{"question":"q","k":0}`},
		{name: "k too large", body: `{"question":"q","k":21}`},
		{name: "k wrong type", body: `{"question":"q","k":"four"}`},
		{name: "question too long", body: `{"question":"` + strings.Repeat("a", 4001) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeUsecase{}
			rec := do(newRouter(uc), http.MethodPost, "/ask", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, uc.gotQuestion)

			var got entity.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, "Bad Request", got.Error)
		})
	}
}

func TestHandler_Ask_PipelineFailureHidesDetail(t *testing.T) {
	uc := &fakeUsecase{err: errors.Join(entity.ErrRetrievalUnavailable, errors.New("dial tcp 10.0.0.5:5432"))}

	rec := do(newRouter(uc), http.MethodPost, "/ask", `{"question":"q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestHandler_AskStream(t *testing.T) {
	uc := &fakeUsecase{frames: []entity.Frame{
		entity.TextFrame("Hello "),
		entity.TextFrame("world."),
		entity.SourcesFrame([]entity.Source{{Source: "medical_book.pdf", Page: entity.PageLocator(12)}}),
		entity.TimingFrame(entity.Timing{RetrievalTime: 0.1, GenerationTime: 0.2, TotalTime: 0.3}),
	}}

	rec := do(newRouter(uc), http.MethodPost, "/ask-stream", `{"question":"q","k":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, uc.gotK)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Hello world.\n[SOURCES]: "))
	assert.Contains(t, rec.Body.String(), "[TIMING]: retrieval=0.100s, llm=0.200s, total=0.300s")
}

func TestHandler_AskStream_NDJSON(t *testing.T) {
	uc := &fakeUsecase{frames: []entity.Frame{entity.TextFrame("Hi")}}

	rec := do(newRouter(uc), http.MethodPost, "/ask-stream?format=ndjson", `{"question":"q"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"text","payload":"Hi"}`, strings.TrimSpace(rec.Body.String()))
}

func TestHandler_AskStream_ErrorsBeforeStreaming(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		rec := do(newRouter(&fakeUsecase{}), http.MethodPost, "/ask-stream?format=xml", `{"question":"q"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		uc := &fakeUsecase{err: entity.ErrRetrievalUnavailable}
		rec := do(newRouter(uc), http.MethodPost, "/ask-stream", `{"question":"q"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}
