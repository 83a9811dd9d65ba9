package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/medrag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Messages shown to clients. Internal error detail only goes to the log.
const (
	MsgInvalidRequest     = "invalid request"
	MsgSessionUnavailable = "session store unavailable"
	MsgInternal           = "An internal error occurred while processing your request."
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Can't change response at this point, just log
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Error writes an error response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Classify maps an error to its HTTP status and the message safe to show.
// Malformed input keeps its own text since it only describes the request.
func Classify(err error) (int, string) {
	switch {
	case entity.IsMalformedInput(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrSessionUnavailable):
		return http.StatusServiceUnavailable, MsgSessionUnavailable
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// HandleError logs err and writes the classified response.
func HandleError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := Classify(err)
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	} else {
		ctxzap.Info(ctx, "request rejected", zap.Int("status", status), zap.Error(err))
	}
	Error(w, status, message)
}
