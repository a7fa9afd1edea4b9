package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
)

type uploadDeckRequest struct {
	PDFURL string `json:"pdf_url" validate:"required"`
	Title  string `json:"title" validate:"required"`
}

func (h *Handler) UploadDeck(w http.ResponseWriter, r *http.Request) {
	var req uploadDeckRequest
	if !h.decode(w, r, &req) {
		return
	}

	deck, err := h.decks.Upload(r.Context(), auth.FromContext(r.Context()), req.Title, req.PDFURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Slide deck record created successfully",
		"slide_deck": deck,
	})
}

func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.decks.List(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slide_decks": decks})
}

func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := h.decks.Get(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slide_deck": deck})
}

func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.decks.Delete(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Slide deck deleted successfully"})
}
