package ask

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers stateless question routes. The blocking route is
// wrapped in timeout; the stream is bounded by the generation deadline.
func RegisterRoutes(r chi.Router, h *Handler, timeout func(http.Handler) http.Handler) {
	r.With(timeout).Post("/ask", h.Ask)
	r.Post("/ask-stream", h.AskStream)
}
