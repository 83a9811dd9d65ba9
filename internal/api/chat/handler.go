package chat

import (
	"fmt"
	"net/http"

	"github.com/futig/medrag/internal/api/decode"
	"github.com/futig/medrag/internal/api/stream"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/formatter"
	"github.com/futig/medrag/internal/pkg/logger"
	"github.com/futig/medrag/internal/pkg/response"
	"github.com/futig/medrag/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase    ChatUsecase
	validator  *validator.Validator
	formatters *formatter.Factory
}

func NewHandler(usecase ChatUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:    usecase,
		validator:  validator,
		formatters: formatter.NewFactory(),
	}
}

// Chat handles POST /chat - answer a question within a session
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := decode.JSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	k, err := h.validator.ValidateChat(&req)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("session_id", req.SessionID))
	ctxzap.Info(ctx, "answering chat question", zap.Int("k", k))

	result, err := h.usecase.Chat(ctx, req.SessionID, req.Question, k)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "chat question answered",
		zap.Int("history_length", result.HistoryLength),
		zap.Bool("refused", result.Refused),
	)

	response.Success(w, result)
}

// ChatStream handles POST /chat-stream - stream an answer within a session
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ChatStream")

	enc, err := stream.NewEncoder(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	var req entity.ChatRequest
	if err := decode.JSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	k, err := h.validator.ValidateChat(&req)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("session_id", req.SessionID))

	frames, err := h.usecase.ChatStream(ctx, req.SessionID, req.Question, k)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	stream.Write(ctx, w, enc, frames)
}

// GetHistory handles GET /chat/{session_id}/history - export the transcript
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "GetHistory"),
	)

	if err := validator.ValidateSessionID(sessionID); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	format, err := validator.ValidateFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	turns, err := h.usecase.History(ctx, sessionID)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	fmtr, err := h.formatters.Create(format)
	if err != nil {
		ctxzap.Error(ctx, "format not implemented", zap.Error(err))
		response.Error(w, http.StatusNotImplemented, "format not implemented")
		return
	}

	body, err := fmtr.Format(entity.ChatHistoryDTO{SessionID: sessionID, Turns: turns})
	if err != nil {
		ctxzap.Error(ctx, "failed to format transcript", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, response.MsgInternal)
		return
	}

	ctxzap.Info(ctx, "transcript exported", zap.String("format", string(format)), zap.Int("turns", len(turns)))

	w.Header().Set("Content-Type", fmtr.ContentType())
	if format != entity.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", formatter.Filename(sessionID, fmtr)))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ClearHistory handles DELETE /chat/{session_id} - forget a session
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "ClearHistory"),
	)

	if err := h.usecase.ClearHistory(ctx, sessionID); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "chat history cleared")
	response.NoContent(w)
}
