package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Caller is the authenticated principal of a request. Row-level scoping in the
// store is derived from UserID alone; the raw tokens are carried for handlers
// but are never replayed against the identity service.
type Caller struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

type contextKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the caller attached by Middleware, or nil.
func FromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(contextKey{}).(*Caller)
	return c
}

// Middleware rejects requests without a valid bearer token with 401 and
// attaches the resolved Caller to the request context otherwise.
func Middleware(v Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w)
				return
			}

			userID, err := v.Verify(r.Context(), token)
			if err != nil || userID == "" {
				log.Info("authentication failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				unauthorized(w)
				return
			}

			caller := &Caller{
				UserID:       userID,
				AccessToken:  token,
				RefreshToken: strings.TrimSpace(r.Header.Get("X-Refresh-Token")),
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// BearerToken trims the header value and strips an optional Bearer prefix.
func BearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Invalid token"})
}
