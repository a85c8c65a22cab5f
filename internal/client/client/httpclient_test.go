package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsclient/internal/client/apitest"
	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, opts ...Option) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(baseURL, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com")
	require.Error(t, err)

	_, err = NewHTTPClient("://nope")
	require.Error(t, err)
}

func TestAuthenticate_Success(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "secret", "Ada Lovelace")
	s1 := srv.SeedStory("ada", "First", "http://example.com/1")

	c := newTestClient(t, srv.URL)
	res, err := c.Authenticate(context.Background(), "ada", "secret")
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada", res.Account.Username)
	assert.Equal(t, "Ada Lovelace", res.Account.Name)
	require.Len(t, res.Account.Stories, 1)
	assert.Equal(t, s1.ID, res.Account.Stories[0].ID)
	assert.Empty(t, res.Account.Favorites)
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "secret", "Ada")
	c := newTestClient(t, srv.URL)

	_, err := c.Authenticate(context.Background(), "ada", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Authenticate(context.Background(), "nobody", "secret")
	require.ErrorIs(t, err, ErrUnauthorized, "unknown user must be an auth failure")
}

func TestRegister_SuccessAndDuplicate(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	res, err := c.Register(ctx, "bob", "pw", "Bob")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "bob", res.Account.Username)

	_, err = c.Register(ctx, "bob", "pw", "Bob")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "already a user")
}

func TestFetchProfile(t *testing.T) {
	srv := apitest.NewServer(t)
	token := srv.AddUser("ada", "secret", "Ada")
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	acc, err := c.FetchProfile(ctx, token, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", acc.Username)

	_, err = c.FetchProfile(ctx, "garbage", "ada")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.FetchProfile(ctx, srv.ExpiredToken("ada"), "ada")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestListStories_PagesThroughEverything(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "secret", "Ada")
	var want []string
	for i := 0; i < 7; i++ {
		s := srv.SeedStory("ada", fmt.Sprintf("s%d", i), "http://example.com")
		want = append([]string{s.ID}, want...)
	}

	c := newTestClient(t, srv.URL, WithPageSize(3))
	got, err := c.ListStories(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, want, ids, "newest first, no gaps")

	pages := 0
	for _, call := range srv.Calls() {
		if call == "GET /stories" {
			pages++
		}
	}
	assert.Equal(t, 3, pages)
}

func TestListStories_EmptyFeed(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL)

	got, err := c.ListStories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListStories_DeduplicatesShiftedPages(t *testing.T) {
	page := []models.Story{{ID: "a"}, {ID: "b"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// server ignores skip and always returns the same full page
		_ = json.NewEncoder(w).Encode(map[string]any{"stories": page})
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, WithPageSize(2))
	got, err := c.ListStories(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCreateStory(t *testing.T) {
	srv := apitest.NewServer(t)
	token := srv.AddUser("ada", "secret", "Ada")
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	st, err := c.CreateStory(ctx, token, models.NewStory{Title: "X", Author: "A", URL: "http://example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "ada", st.Username)
	assert.Equal(t, "X", st.Title)

	_, err = c.CreateStory(ctx, token, models.NewStory{Title: "", Author: "A", URL: "http://example.com"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = c.CreateStory(ctx, "bad", models.NewStory{Title: "X", Author: "A", URL: "http://example.com"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestFavorites_AddRemove(t *testing.T) {
	srv := apitest.NewServer(t)
	token := srv.AddUser("ada", "secret", "Ada")
	st := srv.SeedStory("ada", "X", "http://example.com")
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.AddFavorite(ctx, token, "ada", st.ID))
	assert.Equal(t, []string{st.ID}, srv.Favorites("ada"))

	require.NoError(t, c.RemoveFavorite(ctx, token, "ada", st.ID))
	assert.Empty(t, srv.Favorites("ada"))

	err := c.AddFavorite(ctx, token, "ada", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDo_SetsRequestHeaders(t *testing.T) {
	var (
		mu      sync.Mutex
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = r.Header.Clone()
		mu.Unlock()
		_, _ = w.Write([]byte(`{"stories":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	_, err := c.ListStories(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, headers.Get(RequestIDHeaderName))
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Equal(t, userAgent, headers.Get("User-Agent"))
}

func TestDo_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.ListStories(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := newTestClient(t, srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.ListStories(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_MalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	_, err := c.ListStories(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stories":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, WithRateLimit(0.001, 1))
	ctx := context.Background()
	_, err := c.ListStories(ctx)
	require.NoError(t, err, "first call uses the burst")

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.ListStories(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMapError(t *testing.T) {
	c := &HTTPClient{}
	tests := []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{status: 401, body: `{"error":{"message":"bad token"}}`, want: ErrUnauthorized, msg: "bad token"},
		{status: 403, want: ErrUnauthorized, msg: "Forbidden"},
		{status: 404, want: ErrNotFound},
		{status: 400, want: ErrValidation},
		{status: 409, body: `{"error":{"message":"taken"}}`, want: ErrValidation, msg: "taken"},
		{status: 422, want: ErrValidation},
		{status: 500, want: ErrUnavailable},
		{status: 503, want: ErrUnavailable},
		{status: 429, want: ErrUnavailable},
	}
	for _, tt := range tests {
		err := c.mapError(tt.status, []byte(tt.body))
		require.ErrorIs(t, err, tt.want, tt.status)
		if tt.msg != "" {
			assert.True(t, strings.Contains(err.Error(), tt.msg), err.Error())
		}
	}

	err := c.mapError(418, nil)
	for _, s := range []error{ErrUnauthorized, ErrNotFound, ErrValidation, ErrUnavailable} {
		assert.False(t, errors.Is(err, s))
	}
}

func TestUserPaths_EscapeSegments(t *testing.T) {
	var (
		mu   sync.Mutex
		uris []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		uris = append(uris, r.Method+" "+r.RequestURI)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"user":{"username":"we/ird"}}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/api")
	ctx := context.Background()

	_, err := c.FetchProfile(ctx, "T", "we/ird")
	require.NoError(t, err)
	require.NoError(t, c.AddFavorite(ctx, "T", "ada", "a/b?c"))
	require.NoError(t, c.RemoveFavorite(ctx, "T", "ada", "../stories"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/users/we%2Fird?token=T",
		"POST /api/users/ada/favorites/a%2Fb%3Fc",
		"DELETE /api/users/ada/favorites/..%2Fstories",
	}, uris)
}

func TestAuth_EmptyTokenIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"","user":{"username":"ada"}}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.Authenticate(ctx, "ada", "pw")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = c.Register(ctx, "ada", "pw", "Ada")
	require.ErrorIs(t, err, ErrUnavailable)
}
