package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsclient/internal/client/client"
	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testUser(favorites ...string) *models.User {
	acc := models.Account{Profile: models.Profile{Username: "ada", Name: "Ada"}}
	for _, id := range favorites {
		acc.Favorites = append(acc.Favorites, models.Story{ID: id})
	}
	return models.NewUser("T1", acc)
}

func stories(ids ...string) []models.Story {
	out := make([]models.Story, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Story{ID: id, Title: "title " + id, URL: "http://example.com/" + id, Username: "someone"})
	}
	return out
}

// fakeClient implements client.Client for unit tests of the services.
type fakeClient struct {
	mu sync.Mutex

	AuthRes *models.AuthResult
	AuthErr error

	RegisterRes *models.AuthResult
	RegisterErr error

	Profile    *models.Account
	ProfileErr error

	Stories []models.Story
	ListErr error

	CreateErr error

	AddErr    error
	RemoveErr error

	// gate, when set, holds favorite calls until it is closed.
	gate chan struct{}
	// entered receives "add:<id>" / "remove:<id>" when a favorite call starts.
	entered chan string

	Calls   []string
	created int
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *fakeClient) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Authenticate(ctx context.Context, username, password string) (*models.AuthResult, error) {
	f.record("authenticate")
	return f.AuthRes, f.AuthErr
}

func (f *fakeClient) Register(ctx context.Context, username, password, name string) (*models.AuthResult, error) {
	f.record("register")
	return f.RegisterRes, f.RegisterErr
}

func (f *fakeClient) FetchProfile(ctx context.Context, token, username string) (*models.Account, error) {
	f.record("profile")
	return f.Profile, f.ProfileErr
}

func (f *fakeClient) ListStories(ctx context.Context) ([]models.Story, error) {
	f.record("list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]models.Story(nil), f.Stories...), nil
}

func (f *fakeClient) CreateStory(ctx context.Context, token string, s models.NewStory) (*models.Story, error) {
	f.record("create")
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.mu.Lock()
	f.created++
	id := fmt.Sprintf("new-%d", f.created)
	f.mu.Unlock()
	return &models.Story{ID: id, Title: s.Title, Author: s.Author, URL: s.URL, Username: "ada", CreatedAt: time.Now()}, nil
}

func (f *fakeClient) favorite(ctx context.Context, op, storyID string, err error) error {
	f.record(op + ":" + storyID)
	if f.entered != nil {
		f.entered <- op + ":" + storyID
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeClient) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return f.favorite(ctx, "add", storyID, f.AddErr)
}

func (f *fakeClient) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return f.favorite(ctx, "remove", storyID, f.RemoveErr)
}

var _ client.Client = (*fakeClient)(nil)

type fakeSessionStore struct {
	mu         sync.Mutex
	creds      *models.Credentials
	restoreErr error
	persistErr error
	clearErr   error
	persisted  int
	cleared    int
}

func (s *fakeSessionStore) Restore(ctx context.Context) (*models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.restoreErr
}

func (s *fakeSessionStore) Persist(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted++
	if s.persistErr != nil {
		return s.persistErr
	}
	c := u.Credentials()
	s.creds = &c
	return nil
}

func (s *fakeSessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.creds = nil
	return nil
}
