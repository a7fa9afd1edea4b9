package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes mounts the authenticated API. Auth middleware is applied by the caller.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/slide-decks", func(r chi.Router) {
		r.Post("/upload", h.UploadDeck)
		r.Get("/", h.ListDecks)
		r.Get("/{id}", h.GetDeck)
		r.Delete("/{id}", h.DeleteDeck)
	})
	r.Route("/slide-summaries", func(r chi.Router) {
		r.Post("/generate", h.GenerateSummary)
		r.Post("/regenerate", h.RegenerateSummary)
		r.Get("/", h.ListSummaries)
	})
	r.Post("/chat", h.Chat)
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
