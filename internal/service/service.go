// Package service implements the slide deck, summary and chat workflows on
// top of the table store, the object store and the completion API.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/models"
)

// Repository is the table-store facade the services depend on.
type Repository interface {
	CreateDeck(ctx context.Context, userID, title, pdfURL string, slideCount int) (*models.SlideDeck, error)
	ListDecks(ctx context.Context, userID string) ([]models.SlideDeck, error)
	GetDeck(ctx context.Context, id string) (*models.SlideDeck, error)
	MarkDeckDeleted(ctx context.Context, id string) error
	DeleteDeck(ctx context.Context, id string) (bool, error)
	ListDeletedDecks(ctx context.Context) ([]models.SlideDeck, error)
	DeleteSummariesByDeck(ctx context.Context, deckID string) error
	UpsertSummary(ctx context.Context, deckID string, slideNumber int, text *string) (*models.SlideSummary, error)
	ListSummaries(ctx context.Context, deckID string) ([]models.SlideSummary, error)
}

// ObjectStore holds the uploaded PDF files.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// Limits are the completion budgets per operation.
type Limits struct {
	SummaryModel        string
	ChatModel           string
	SummaryMaxTokens    int
	RegenerateMaxTokens int
	ChatMaxTokens       int
	ImageMaxDimension   int
	ImageMaxPixels      int
}

func DefaultLimits() Limits {
	return Limits{
		SummaryModel:        "gpt-4o",
		ChatModel:           "gpt-4o-mini",
		SummaryMaxTokens:    300,
		RegenerateMaxTokens: 300,
		ChatMaxTokens:       250,
		ImageMaxDimension:   1568,
		ImageMaxPixels:      4096 * 4096,
	}
}

func requireCaller(caller *auth.Caller) error {
	if caller == nil || caller.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// ownedDeck loads a deck and checks that caller owns it. Ids that are not
// UUIDs cannot name a deck and never reach the store.
func ownedDeck(ctx context.Context, repo Repository, caller *auth.Caller, id string) (*models.SlideDeck, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrForbidden
	}
	deck, err := repo.GetDeck(ctx, id)
	if err != nil {
		return nil, err
	}
	if deck == nil || deck.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	return deck, nil
}
