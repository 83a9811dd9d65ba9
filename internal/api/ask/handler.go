package ask

import (
	"net/http"

	"github.com/futig/medrag/internal/api/decode"
	"github.com/futig/medrag/internal/api/stream"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/logger"
	"github.com/futig/medrag/internal/pkg/response"
	"github.com/futig/medrag/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   AnswerUsecase
	validator *validator.Validator
}

func NewHandler(usecase AnswerUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// Ask handles POST /ask - answer a single question
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Ask")

	var req entity.AskRequest
	if err := decode.JSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	k, err := h.validator.ValidateAsk(&req)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "answering question", zap.Int("k", k), zap.Int("question_length", len(req.Question)))

	result, err := h.usecase.Ask(ctx, req.Question, k)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "question answered",
		zap.Int("sources", len(result.Sources)),
		zap.Bool("refused", result.Refused),
		zap.Float64("total_time", result.Timing.TotalTime),
	)

	response.Success(w, result)
}

// AskStream handles POST /ask-stream - stream the answer to a single question
func (h *Handler) AskStream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "AskStream")

	enc, err := stream.NewEncoder(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	var req entity.AskRequest
	if err := decode.JSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	k, err := h.validator.ValidateAsk(&req)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	frames, err := h.usecase.AskStream(ctx, req.Question, k)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	stream.Write(ctx, w, enc, frames)
}
