package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/llm"
	"github.com/petermazzocco/slidedeck-api/internal/store"
)

func newRepo(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := store.New(db, store.Options{Now: func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}})
	require.NoError(t, s.Migrate())
	return s
}

func caller(id string) *auth.Caller {
	return &auth.Caller{UserID: id, AccessToken: "token-" + id}
}

func ptr[T any](v T) *T { return &v }

type stubCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeObjects struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleted   []string
	deleteErr error
	getErr    error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: map[string][]byte{}}
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.files[key]
	if !ok {
		return nil, errors.Errorf("no such key %s", key)
	}
	return data, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.files, key)
	return nil
}

type fixedPages struct {
	n   int
	err error
}

func (p fixedPages) PageCount([]byte) (int, error) { return p.n, p.err }

// untouchedRepo panics on any call, proving an operation never reached the store.
type untouchedRepo struct {
	Repository
}

// flakyRepo fails summary deletion while failSummaries is set.
type flakyRepo struct {
	Repository
	failSummaries bool
}

func (f *flakyRepo) DeleteSummariesByDeck(ctx context.Context, deckID string) error {
	if f.failSummaries {
		return errors.New("connection reset")
	}
	return f.Repository.DeleteSummariesByDeck(ctx, deckID)
}
