package handlers

import (
	"net/http"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/service"
)

type generateSummaryRequest struct {
	SlideDeckID        string  `json:"slide_deck_id" validate:"required"`
	SlideNumber        int     `json:"slide_number" validate:"required,min=1"`
	SummaryText        *string `json:"summary_text"`
	SlideImage         *string `json:"slide_image"`
	PreviousSummary    *string `json:"previous_summary"`
	PreviousSlideImage *string `json:"previous_slide_image"`
}

type regenerateSummaryRequest struct {
	SlideDeckID string   `json:"slide_deck_id" validate:"required"`
	SlideNumber int      `json:"slide_number" validate:"required,min=1"`
	SummaryText *string  `json:"summary_text"`
	ChatContext []string `json:"chat_context"`
}

func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req generateSummaryRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, err := h.summaries.Generate(r.Context(), auth.FromContext(r.Context()), service.GenerateInput{
		DeckID:             req.SlideDeckID,
		SlideNumber:        req.SlideNumber,
		SummaryText:        req.SummaryText,
		SlideImage:         req.SlideImage,
		PreviousSummary:    req.PreviousSummary,
		PreviousSlideImage: req.PreviousSlideImage,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Slide summary created/updated successfully",
		"slide_summary": summary,
	})
}

func (h *Handler) RegenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req regenerateSummaryRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, text, err := h.summaries.Regenerate(r.Context(), auth.FromContext(r.Context()), service.RegenerateInput{
		DeckID:      req.SlideDeckID,
		SlideNumber: req.SlideNumber,
		SummaryText: req.SummaryText,
		ChatContext: req.ChatContext,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Slide summary regenerated successfully",
		"slide_summary": summary,
		"summary_text":  text,
	})
}

func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	deckID := r.URL.Query().Get("slide_deck_id")
	if deckID == "" {
		writeMessage(w, http.StatusBadRequest, "slide_deck_id is required")
		return
	}

	summaries, err := h.summaries.List(r.Context(), auth.FromContext(r.Context()), deckID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slide_summaries": summaries})
}
