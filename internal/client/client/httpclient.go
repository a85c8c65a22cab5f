package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// RequestIDHeaderName carries a per-call id so client and server logs can be joined.
	RequestIDHeaderName = "X-Request-ID"

	defaultPageSize = 25
	maxResponseSize = 4 << 20
	userAgent       = "newsclient/1.0"
)

// HTTPClient talks to the news service REST API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	log        logging.Logger
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (timeouts, transport).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithRateLimit paces outgoing calls to rps requests per second.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *HTTPClient) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPageSize sets the page size used when listing stories.
func WithPageSize(n int) Option {
	return func(h *HTTPClient) {
		if n > 0 {
			h.pageSize = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) { h.log = l }
}

// NewHTTPClient builds a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL:    u,
		httpClient: http.DefaultClient,
		pageSize:   defaultPageSize,
		log:        logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type userCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authRequest struct {
	User userCredentials `json:"user"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  models.Account `json:"user"`
}

type userResponse struct {
	User models.Account `json:"user"`
}

type storiesResponse struct {
	Stories []models.Story `json:"stories"`
}

type storyRequest struct {
	Token string          `json:"token"`
	Story models.NewStory `json:"story"`
}

type storyResponse struct {
	Story models.Story `json:"story"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) Authenticate(ctx context.Context, username, password string) (*models.AuthResult, error) {
	req := authRequest{User: userCredentials{Username: username, Password: password}}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, req, &resp); err != nil {
		// an unknown username is reported as 404
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
		}
		return nil, err
	}

	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response has no token", ErrUnavailable)
	}

	return &models.AuthResult{Token: resp.Token, Account: resp.User}, nil
}

func (c *HTTPClient) Register(ctx context.Context, username, password, name string) (*models.AuthResult, error) {
	req := authRequest{User: userCredentials{Username: username, Password: password, Name: name}}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/signup", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: signup response has no token", ErrUnavailable)
	}

	return &models.AuthResult{Token: resp.Token, Account: resp.User}, nil
}

func (c *HTTPClient) FetchProfile(ctx context.Context, token, username string) (*models.Account, error) {
	q := url.Values{}
	q.Set("token", token)

	var resp userResponse
	if err := c.do(ctx, http.MethodGet, userPath(username), q, nil, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s no longer exists", ErrUnauthorized, username)
		}
		return nil, err
	}

	return &resp.User, nil
}

// ListStories pages through /stories until a short page and returns the
// whole collection, newest first. Stories shifted across page boundaries by
// concurrent submissions are returned once.
func (c *HTTPClient) ListStories(ctx context.Context) ([]models.Story, error) {
	var (
		result []models.Story
		seen   = make(map[string]struct{})
	)

	for skip := 0; ; skip += c.pageSize {
		q := url.Values{}
		q.Set("skip", strconv.Itoa(skip))
		q.Set("limit", strconv.Itoa(c.pageSize))

		var resp storiesResponse
		if err := c.do(ctx, http.MethodGet, "/stories", q, nil, &resp); err != nil {
			return nil, err
		}

		added := 0
		for _, s := range resp.Stories {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			result = append(result, s)
			added++
		}

		if len(resp.Stories) < c.pageSize || added == 0 {
			break
		}
	}

	return result, nil
}

func (c *HTTPClient) CreateStory(ctx context.Context, token string, story models.NewStory) (*models.Story, error) {
	req := storyRequest{Token: token, Story: story}

	var resp storyResponse
	if err := c.do(ctx, http.MethodPost, "/stories", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Story.ID == "" {
		return nil, fmt.Errorf("%w: created story has no id", ErrUnavailable)
	}

	return &resp.Story, nil
}

func (c *HTTPClient) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return c.do(ctx, http.MethodPost, favoritePath(username, storyID), nil, tokenRequest{Token: token}, nil)
}

func (c *HTTPClient) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return c.do(ctx, http.MethodDelete, favoritePath(username, storyID), nil, tokenRequest{Token: token}, nil)
}

func favoritePath(username, storyID string) string {
	return userPath(username, "favorites", storyID)
}

// userPath builds /users/{username}/{rest...} with every segment escaped, so
// a "/" or "?" inside a username or story id stays within its segment.
func userPath(username string, rest ...string) string {
	segs := append([]string{"users", username}, rest...)
	for i := range segs {
		segs[i] = url.PathEscape(segs[i])
	}
	return "/" + strings.Join(segs, "/")
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	// path arrives escaped
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	u.Path = unescaped
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeaderName, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With("method", method, "path", path, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn(ctx, "request failed", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	log.Debug(ctx, "response received", "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *HTTPClient) mapError(status int, body []byte) error {
	msg := http.StatusText(status)
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, msg)
	}
}
