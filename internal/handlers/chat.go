package handlers

import (
	"net/http"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/service"
)

// Field names follow the frontend's camelCase payload.
type chatRequest struct {
	UserMessage  string   `json:"userMessage" validate:"required"`
	SlideDeckID  *string  `json:"slideDeckId"`
	SlideNumber  *int     `json:"slideNumber" validate:"omitempty,min=1"`
	SlideSummary *string  `json:"slideSummary"`
	ChatHistory  []string `json:"chatHistory"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decode(w, r, &req) {
		return
	}

	reply, err := h.chat.Reply(r.Context(), auth.FromContext(r.Context()), service.ChatInput{
		UserMessage:  req.UserMessage,
		SlideDeckID:  req.SlideDeckID,
		SlideNumber:  req.SlideNumber,
		SlideSummary: req.SlideSummary,
		ChatHistory:  req.ChatHistory,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
