package api

import (
	"net/http"
	"time"

	askapi "github.com/futig/medrag/internal/api/ask"
	chatapi "github.com/futig/medrag/internal/api/chat"
	"github.com/futig/medrag/internal/api/docs"
	"github.com/futig/medrag/internal/api/middleware"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	healthStatus  = "ok"
	healthMessage = "Medical RAG API running"
)

// SetupRouter creates and configures the HTTP router. chatHandler may be nil,
// in which case the chat routes are not registered.
func SetupRouter(askHandler *askapi.Handler, chatHandler *chatapi.Handler, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)   // Recover from panics
	r.Use(chimiddleware.RequestID)   // Add request ID
	r.Use(middleware.Logger(logger)) // Log requests
	r.Use(middleware.CORS())         // Handle CORS

	timeout := chimiddleware.Timeout(requestTimeout)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, entity.HealthResponse{
			Status:      healthStatus,
			Message:     healthMessage,
			ChatEnabled: chatHandler != nil,
		})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Register routes
	askapi.RegisterRoutes(r, askHandler, timeout)
	if chatHandler != nil {
		chatapi.RegisterRoutes(r, chatHandler, timeout)
	}

	return r
}
