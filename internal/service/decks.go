package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/storage"
	"github.com/petermazzocco/slidedeck-api/models"
)

type PurgeObserver interface {
	DecksPurged(n int)
}

type Decks struct {
	repo    Repository
	objects ObjectStore
	pages   PageCounter
	log     *zap.Logger
	purged  PurgeObserver
}

// NewDecks builds the deck service. pages may be nil, in which case uploaded
// decks are stored with an unknown slide count.
func NewDecks(repo Repository, objects ObjectStore, pages PageCounter, log *zap.Logger) *Decks {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decks{repo: repo, objects: objects, pages: pages, log: log}
}

func (d *Decks) WithPurgeObserver(o PurgeObserver) *Decks {
	d.purged = o
	return d
}

// Upload registers a PDF the client already put in the bucket.
func (d *Decks) Upload(ctx context.Context, caller *auth.Caller, title, pdfURL string) (*models.SlideDeck, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title is required")
	}
	pdfURL = storage.CleanURL(strings.TrimSpace(pdfURL))
	if !strings.HasSuffix(strings.ToLower(pdfURL), ".pdf") {
		return nil, invalid("Only PDF URLs are allowed")
	}

	deck, err := d.repo.CreateDeck(ctx, caller.UserID, title, pdfURL, d.slideCount(ctx, pdfURL))
	if err != nil {
		return nil, err
	}
	d.log.Info("slide deck created",
		zap.String("deck_id", deck.ID),
		zap.String("user_id", deck.UserID),
		zap.Int("slide_count", deck.SlideCount),
	)
	return deck, nil
}

// slideCount is best-effort: any failure yields 0.
func (d *Decks) slideCount(ctx context.Context, pdfURL string) int {
	if d.pages == nil || d.objects == nil {
		return 0
	}
	key, err := storage.ObjectKey(pdfURL)
	if err != nil {
		d.log.Warn("cannot derive object key", zap.String("pdf_url", pdfURL), zap.Error(err))
		return 0
	}
	data, err := d.objects.Get(ctx, key)
	if err != nil {
		d.log.Warn("cannot fetch uploaded pdf", zap.String("key", key), zap.Error(err))
		return 0
	}
	n, err := d.pages.PageCount(data)
	if err != nil {
		d.log.Warn("cannot count pdf pages", zap.String("key", key), zap.Error(err))
		return 0
	}
	return n
}

func (d *Decks) List(ctx context.Context, caller *auth.Caller) ([]models.SlideDeck, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return d.repo.ListDecks(ctx, caller.UserID)
}

func (d *Decks) Get(ctx context.Context, caller *auth.Caller, id string) (*models.SlideDeck, error) {
	return ownedDeck(ctx, d.repo, caller, id)
}

// Delete removes a deck, its summaries and its PDF. The deck is soft-deleted
// first so it disappears from reads at once; if the purge that follows fails
// part way the sweeper finishes it later.
func (d *Decks) Delete(ctx context.Context, caller *auth.Caller, id string) error {
	deck, err := ownedDeck(ctx, d.repo, caller, id)
	if err != nil {
		return err
	}
	if err := d.repo.MarkDeckDeleted(ctx, deck.ID); err != nil {
		return err
	}
	if err := d.purge(ctx, deck); err != nil {
		d.log.Error("slide deck purge incomplete, left for sweeper",
			zap.String("deck_id", deck.ID),
			zap.Error(err),
		)
		return err
	}
	d.log.Info("slide deck deleted", zap.String("deck_id", deck.ID), zap.String("user_id", deck.UserID))
	return nil
}

// purge is idempotent; every step tolerates a previous partial run.
func (d *Decks) purge(ctx context.Context, deck *models.SlideDeck) error {
	d.deletePDF(ctx, deck)
	if err := d.repo.DeleteSummariesByDeck(ctx, deck.ID); err != nil {
		return err
	}
	removed, err := d.repo.DeleteDeck(ctx, deck.ID)
	if err != nil {
		return err
	}
	// A concurrent purge of the same deck may already have removed the row.
	if removed && d.purged != nil {
		d.purged.DecksPurged(1)
	}
	return nil
}

// deletePDF never fails the deletion workflow.
func (d *Decks) deletePDF(ctx context.Context, deck *models.SlideDeck) {
	if d.objects == nil {
		return
	}
	key, err := storage.ObjectKey(deck.PDFURL)
	if err != nil {
		d.log.Warn("cannot derive object key", zap.String("deck_id", deck.ID), zap.Error(err))
		return
	}
	if err := d.objects.Delete(ctx, key); err != nil {
		d.log.Warn("failed to delete pdf object", zap.String("deck_id", deck.ID), zap.String("key", key), zap.Error(err))
	}
}

// Sweep purges every soft-deleted deck and returns how many were removed.
func (d *Decks) Sweep(ctx context.Context) (int, error) {
	decks, err := d.repo.ListDeletedDecks(ctx)
	if err != nil {
		return 0, err
	}
	var (
		purged int
		errs   []string
	)
	for i := range decks {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := d.purge(ctx, &decks[i]); err != nil {
			errs = append(errs, decks[i].ID+": "+err.Error())
			continue
		}
		purged++
	}
	if len(errs) > 0 {
		return purged, errors.Errorf("purge failed for %d deck(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return purged, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (d *Decks) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				d.log.Error("sweep failed", zap.Int("purged", n), zap.Error(err))
				continue
			}
			if n > 0 {
				d.log.Info("swept deleted slide decks", zap.Int("purged", n))
			}
		}
	}
}
