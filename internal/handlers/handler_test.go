package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petermazzocco/slidedeck-api/internal/service"
)

func TestWriteError(t *testing.T) {
	h := New(nil, nil, nil, zap.NewNop())

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized, "Invalid token"},
		{"forbidden", errors.Wrap(service.ErrForbidden, "load deck"), http.StatusForbidden, "You do not have access to this slide deck"},
		{"validation", &service.ValidationError{Msg: "Only PDF URLs are allowed"}, http.StatusBadRequest, "Only PDF URLs are allowed"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeError(rec, httptest.NewRequest(http.MethodGet, "/api/slide-decks/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestDecode(t *testing.T) {
	h := New(nil, nil, nil, zap.NewNop())

	tests := []struct {
		name string
		body string
		ok   bool
		msg  string
	}{
		{"valid", `{"slide_deck_id":"d1","slide_number":2}`, true, ""},
		{"malformed", `{"slide_deck_id":`, false, "Invalid request body"},
		{"missing deck id", `{"slide_number":2}`, false, "slide_deck_id is required"},
		{"missing slide number", `{"slide_deck_id":"d1"}`, false, "slide_number is required"},
		{"negative slide number", `{"slide_deck_id":"d1","slide_number":-3}`, false, "slide_number must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/slide-summaries/generate", strings.NewReader(tt.body))

			var req generateSummaryRequest
			assert.Equal(t, tt.ok, h.decode(rec, r, &req))
			if tt.ok {
				assert.Equal(t, "d1", req.SlideDeckID)
				assert.Equal(t, 2, req.SlideNumber)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestJSONFieldName(t *testing.T) {
	h := New(nil, nil, nil, nil)
	err := h.validate.Struct(chatRequest{})
	assert.Equal(t, "userMessage is required", validationMessage(err))
}
