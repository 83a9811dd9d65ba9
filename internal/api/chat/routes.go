package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session chat routes
func RegisterRoutes(r chi.Router, h *Handler, timeout func(http.Handler) http.Handler) {
	r.With(timeout).Post("/chat", h.Chat)
	r.Post("/chat-stream", h.ChatStream)

	r.Route("/chat/{session_id}", func(r chi.Router) {
		r.Use(timeout)
		r.Get("/history", h.GetHistory)
		r.Delete("/", h.ClearHistory)
	})
}
