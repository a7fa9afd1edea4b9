package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/petermazzocco/slidedeck-api/internal/service"
)

// maxBodyBytes leaves room for two inline slide images.
const maxBodyBytes = 20 << 20

type Handler struct {
	decks     *service.Decks
	summaries *service.Summaries
	chat      *service.Chat
	log       *zap.Logger
	validate  *validator.Validate
}

func New(decks *service.Decks, summaries *service.Summaries, chat *service.Chat, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &Handler{
		decks:     decks,
		summaries: summaries,
		chat:      chat,
		log:       log,
		validate:  v,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the service error taxonomy to a status code. Only
// validation messages reach the client; everything else is logged.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := service.IsValidation(err); ok {
		writeMessage(w, http.StatusBadRequest, v.Msg)
		return
	}
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, service.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "You do not have access to this slide deck")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into dst and validates its struct tags. It writes
// the 400 response itself and reports false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Debug("invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request body"
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
