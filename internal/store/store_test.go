package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
)

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	s := New(db, Options{Now: tickingClock()})
	require.NoError(t, s.Migrate())
	return s
}

func text(s string) *string { return &s }

func TestUpsertSummaryLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, "user-1", "Lecture 1", "https://cdn/slidedecks/user-1/a.pdf", 0)
	require.NoError(t, err)

	_, err = s.UpsertSummary(ctx, deck.ID, 1, text("first"))
	require.NoError(t, err)
	got, err := s.UpsertSummary(ctx, deck.ID, 1, text("second"))
	require.NoError(t, err)
	require.NotNil(t, got.SummaryText)
	assert.Equal(t, "second", *got.SummaryText)

	summaries, err := s.ListSummaries(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "second", *summaries[0].SummaryText)
	assert.Equal(t, 1, summaries[0].SlideNumber)
}

func TestUpsertSummaryNullText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, "user-1", "Lecture 1", "https://cdn/slidedecks/user-1/a.pdf", 0)
	require.NoError(t, err)

	got, err := s.UpsertSummary(ctx, deck.ID, 3, nil)
	require.NoError(t, err)
	assert.Nil(t, got.SummaryText)
}

func TestListSummariesAscending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, "user-1", "Lecture 1", "https://cdn/slidedecks/user-1/a.pdf", 0)
	require.NoError(t, err)
	other, err := s.CreateDeck(ctx, "user-1", "Lecture 2", "https://cdn/slidedecks/user-1/b.pdf", 0)
	require.NoError(t, err)

	for _, n := range []int{5, 2, 9, 1, 3} {
		_, err := s.UpsertSummary(ctx, deck.ID, n, text("slide"))
		require.NoError(t, err)
	}
	_, err = s.UpsertSummary(ctx, other.ID, 4, text("other deck"))
	require.NoError(t, err)

	summaries, err := s.ListSummaries(ctx, deck.ID)
	require.NoError(t, err)

	var numbers []int
	for _, sm := range summaries {
		numbers = append(numbers, sm.SlideNumber)
		assert.Equal(t, deck.ID, sm.SlideDeckID)
	}
	assert.Equal(t, []int{1, 2, 3, 5, 9}, numbers)
}

func TestListDecksOwnerNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateDeck(ctx, "user-1", "first", "https://cdn/slidedecks/user-1/1.pdf", 0)
	require.NoError(t, err)
	_, err = s.CreateDeck(ctx, "user-2", "foreign", "https://cdn/slidedecks/user-2/2.pdf", 0)
	require.NoError(t, err)
	second, err := s.CreateDeck(ctx, "user-1", "second", "https://cdn/slidedecks/user-1/3.pdf", 12)
	require.NoError(t, err)

	decks, err := s.ListDecks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, second.ID, decks[0].ID)
	assert.Equal(t, first.ID, decks[1].ID)
	assert.Equal(t, 12, decks[0].SlideCount)
	for _, d := range decks {
		assert.Equal(t, "user-1", d.UserID)
	}

	none, err := s.ListDecks(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetDeck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, "user-1", "Lecture", "https://cdn/slidedecks/user-1/a.pdf", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, deck.ID)
	assert.False(t, deck.CreatedAt.IsZero())

	got, err := s.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lecture", got.Title)

	missing, err := s.GetDeck(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSoftDeleteAndPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, "user-1", "Lecture", "https://cdn/slidedecks/user-1/a.pdf", 0)
	require.NoError(t, err)
	_, err = s.UpsertSummary(ctx, deck.ID, 1, text("one"))
	require.NoError(t, err)

	require.NoError(t, s.MarkDeckDeleted(ctx, deck.ID))

	got, err := s.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	decks, err := s.ListDecks(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, decks)

	deleted, err := s.ListDeletedDecks(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, deck.ID, deleted[0].ID)

	require.NoError(t, s.DeleteSummariesByDeck(ctx, deck.ID))
	removed, err := s.DeleteDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	deleted, err = s.ListDeletedDecks(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	summaries, err := s.ListSummaries(ctx, deck.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestCallerContextWithoutPostgres(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	s := New(db, Options{RowLevelSecurity: true})
	require.NoError(t, s.Migrate())

	// Row-level scoping only applies to Postgres; other dialects run as-is.
	ctx := auth.WithCaller(context.Background(), &auth.Caller{UserID: "user-1"})
	deck, err := s.CreateDeck(ctx, "user-1", "Lecture", "https://cdn/slidedecks/user-1/a.pdf", 0)
	require.NoError(t, err)

	decks, err := s.ListDecks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, deck.ID, decks[0].ID)
}
