package service

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden covers both missing decks and decks owned by someone else
	// so callers cannot probe for other users' ids.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
