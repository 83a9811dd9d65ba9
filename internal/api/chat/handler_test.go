package chat

import (
	"context"
	"encoding/json"
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
	history map[string][]entity.ConversationTurn
	err     error

	gotSession string
	gotK       int
}

func newFakeUsecase() *fakeUsecase {
	return &fakeUsecase{history: map[string][]entity.ConversationTurn{}}
}

func (f *fakeUsecase) Chat(_ context.Context, sessionID, question string, k int) (*entity.ChatResult, error) {
	f.gotSession, f.gotK = sessionID, k
	if f.err != nil {
		return nil, f.err
	}
	answer := "answer to " + question
	f.history[sessionID] = append(f.history[sessionID], entity.TurnPair(question, answer)...)
	return &entity.ChatResult{
		AnswerResult:  entity.AnswerResult{Answer: answer, Sources: []entity.Source{}},
		HistoryLength: len(f.history[sessionID]),
	}, nil
}

func (f *fakeUsecase) ChatStream(_ context.Context, sessionID, question string, k int) (<-chan entity.Frame, error) {
	f.gotSession, f.gotK = sessionID, k
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan entity.Frame, 3)
	ch <- entity.TextFrame("streamed")
	ch <- entity.SourcesFrame(nil)
	ch <- entity.TimingFrame(entity.Timing{})
	close(ch)
	return ch, nil
}

func (f *fakeUsecase) History(_ context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[sessionID], nil
}

func (f *fakeUsecase) ClearHistory(_ context.Context, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.history, sessionID)
	return nil
}

func newRouter(uc ChatUsecase) http.Handler {
	r := chi.NewRouter()
	v := validator.NewValidator(config.RAGConfig{DefaultTopK: 4, MaxTopK: 20})
	RegisterRoutes(r, NewHandler(uc, v), func(next http.Handler) http.Handler { return next })
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHandler_Chat(t *testing.T) {
	uc := newFakeUsecase()
	router := newRouter(uc)

	rec := do(router, http.MethodPost, "/chat", `{"session_id":"s1","question":"first"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/chat", `{"session_id":"s1","question":"second","k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, uc.gotK)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "answer to second", got["answer"])
	assert.EqualValues(t, 4, got["history_length"])
}

func TestHandler_Chat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing session", body: `{"question":"q"}`},
		{name: "blank session", body: `{"session_id":"  ","question":"q"}`},
		{name: "session with newline", body: `{"session_id":"a\nb","question":"q"}`},
		{name: "session too long", body: `{"session_id":"` + strings.Repeat("s", 129) + `","question":"q"}`},
		{name: "missing question", body: `{"session_id":"s1"}`},
		{name: "k out of range", body: `{"session_id":"s1","question":"q","k":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newFakeUsecase()
			rec := do(newRouter(uc), http.MethodPost, "/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, uc.gotSession)
		})
	}
}

func TestHandler_Chat_StoreUnavailable(t *testing.T) {
	uc := newFakeUsecase()
	uc.err = entity.ErrSessionUnavailable

	rec := do(newRouter(uc), http.MethodPost, "/chat", `{"session_id":"s1","question":"q"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_ChatStream(t *testing.T) {
	uc := newFakeUsecase()

	rec := do(newRouter(uc), http.MethodPost, "/chat-stream", `{"session_id":"s1","question":"q"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", uc.gotSession)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "streamed\n[SOURCES]: []\n"))
}

func TestHandler_GetHistory(t *testing.T) {
	uc := newFakeUsecase()
	uc.history["s1"] = entity.TurnPair("What is diabetes?", "A metabolic disorder [Page 12].")
	router := newRouter(uc)

	t.Run("json default", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/chat/s1/history", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Disposition"))

		var got entity.ChatHistoryDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "s1", got.SessionID)
		assert.Len(t, got.Turns, 2)
		assert.Equal(t, entity.RoleUser, got.Turns[0].Role)
	})

	t.Run("markdown attachment", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/chat/s1/history?format=markdown", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Body.String(), "What is diabetes?")
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/chat/other/history", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got entity.ChatHistoryDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Empty(t, got.Turns)
	})

	t.Run("invalid format", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/chat/s1/history?format=xml", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ClearHistory(t *testing.T) {
	uc := newFakeUsecase()
	uc.history["s1"] = entity.TurnPair("q", "a")
	router := newRouter(uc)

	rec := do(router, http.MethodDelete, "/chat/s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, uc.history, "s1")

	rec = do(router, http.MethodDelete, "/chat/s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
