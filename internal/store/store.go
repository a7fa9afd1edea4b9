// Package store is the table-store facade for slide decks and their summaries.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/models"
)

type Options struct {
	// RowLevelSecurity runs every operation made on behalf of a request caller
	// inside a transaction with the caller's JWT claims and the authenticated
	// role set, so Postgres row-level policies apply.
	RowLevelSecurity bool
	Now              func() time.Time
}

type Store struct {
	db       *gorm.DB
	rowLevel bool
	now      func() time.Time
}

// Open connects to Postgres using dsn.
func Open(dsn string, opts Options) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return New(db, opts), nil
}

func New(db *gorm.DB, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, rowLevel: opts.RowLevelSecurity, now: now}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.SlideDeck{}, &models.SlideSummary{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// run executes fn with the caller's row-level permissions when enabled and a
// caller is present; otherwise with the connection's own role.
func (s *Store) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	caller := auth.FromContext(ctx)
	if !s.rowLevel || caller == nil || s.db.Dialector.Name() != "postgres" {
		return fn(s.db.WithContext(ctx))
	}

	claims, err := json.Marshal(map[string]string{
		"sub":  caller.UserID,
		"role": "authenticated",
	})
	if err != nil {
		return errors.Wrap(err, "encode caller claims")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(
			"SELECT set_config('request.jwt.claims', ?, true), set_config('request.jwt.claim.sub', ?, true), set_config('role', 'authenticated', true)",
			string(claims), caller.UserID,
		).Error
		if err != nil {
			return errors.Wrap(err, "scope transaction to caller")
		}
		return fn(tx)
	})
}

func (s *Store) CreateDeck(ctx context.Context, userID, title, pdfURL string, slideCount int) (*models.SlideDeck, error) {
	deck := &models.SlideDeck{
		UserID:     userID,
		Title:      title,
		PDFURL:     pdfURL,
		SlideCount: slideCount,
		CreatedAt:  s.now().UTC(),
	}
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Create(deck).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "insert slide deck")
	}
	return deck, nil
}

func (s *Store) ListDecks(ctx context.Context, userID string) ([]models.SlideDeck, error) {
	decks := []models.SlideDeck{}
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("user_id = ?", userID).Order("created_at DESC").Find(&decks).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "list slide decks")
	}
	return decks, nil
}

// GetDeck returns nil without error when the deck does not exist or has been
// soft-deleted.
func (s *Store) GetDeck(ctx context.Context, id string) (*models.SlideDeck, error) {
	var decks []models.SlideDeck
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Limit(1).Find(&decks).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "get slide deck")
	}
	if len(decks) == 0 {
		return nil, nil
	}
	return &decks[0], nil
}

// MarkDeckDeleted hides the deck from reads until it is purged.
func (s *Store) MarkDeckDeleted(ctx context.Context, id string) error {
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&models.SlideDeck{}).Error
	})
	return errors.Wrap(err, "mark slide deck deleted")
}

// DeleteDeck removes the deck row permanently, soft-deleted or not. It
// reports false when no row was left to remove.
func (s *Store) DeleteDeck(ctx context.Context, id string) (bool, error) {
	var removed int64
	err := s.run(ctx, func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("id = ?", id).Delete(&models.SlideDeck{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, errors.Wrap(err, "delete slide deck")
	}
	return removed > 0, nil
}

func (s *Store) ListDeletedDecks(ctx context.Context) ([]models.SlideDeck, error) {
	decks := []models.SlideDeck{}
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Unscoped().Where("deleted_at IS NOT NULL").Order("deleted_at").Find(&decks).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "list deleted slide decks")
	}
	return decks, nil
}

func (s *Store) DeleteSummariesByDeck(ctx context.Context, deckID string) error {
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("slide_deck_id = ?", deckID).Delete(&models.SlideSummary{}).Error
	})
	return errors.Wrap(err, "delete slide summaries")
}

// UpsertSummary inserts or replaces the summary of one slide. Concurrent
// writers to the same slide race; the last write wins.
func (s *Store) UpsertSummary(ctx context.Context, deckID string, slideNumber int, text *string) (*models.SlideSummary, error) {
	row := &models.SlideSummary{
		SlideDeckID: deckID,
		SlideNumber: slideNumber,
		SummaryText: text,
		UpdatedAt:   s.now().UTC(),
	}
	var saved models.SlideSummary
	err := s.run(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slide_deck_id"}, {Name: "slide_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary_text", "updated_at"}),
		}).Create(row).Error
		if err != nil {
			return err
		}
		return tx.Where("slide_deck_id = ? AND slide_number = ?", deckID, slideNumber).First(&saved).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "upsert slide summary")
	}
	return &saved, nil
}

func (s *Store) ListSummaries(ctx context.Context, deckID string) ([]models.SlideSummary, error) {
	summaries := []models.SlideSummary{}
	err := s.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("slide_deck_id = ?", deckID).Order("slide_number").Find(&summaries).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "list slide summaries")
	}
	return summaries, nil
}
