// Package apitest provides an in-memory fake of the news service REST API
// served over httptest. It speaks the same JSON contract as the real service
// and lets tests inject failures or hold requests in flight.
package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxPageSize = 25

type account struct {
	passwordHash []byte
	profile      models.Profile
	favorites    []string
	stories      []string
}

// Server is a fake news service. The zero value is not usable; use NewServer.
type Server struct {
	*httptest.Server

	// Intercept, when set, sees every request first. Returning true means
	// the request has been fully handled.
	Intercept func(w http.ResponseWriter, r *http.Request) bool

	mu       sync.Mutex
	secret   []byte
	tokenTTL time.Duration
	accounts map[string]*account
	stories  []models.Story
	calls    []string
}

// NewServer starts a fake service that is shut down when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:   []byte(uuid.NewString()),
		accounts: make(map[string]*account),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/login", s.login)
	r.Post("/signup", s.signup)
	r.Get("/users/{username}", s.getUser)
	r.Get("/stories", s.listStories)
	r.Post("/stories", s.createStory)
	r.Post("/users/{username}/favorites/{storyID}", s.addFavorite)
	r.Delete("/users/{username}/favorites/{storyID}", s.removeFavorite)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Server.Close)
	return s
}

// SetTokenTTL makes tokens issued from now on expire after ttl.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// AddUser registers an account directly and returns a valid token for it.
func (s *Server) AddUser(username, password, name string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = &account{
		passwordHash: hash,
		profile:      models.Profile{Username: username, Name: name, CreatedAt: time.Now().UTC().Truncate(time.Second)},
	}
	return s.issueToken(username)
}

// SeedStory stores a story submitted by username and returns it. The story is
// placed at the front of the collection.
func (s *Server) SeedStory(username, title, url string) models.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertStory(username, models.NewStory{Title: title, Author: username, URL: url})
}

// SetIntercept replaces Intercept while the server is running.
func (s *Server) SetIntercept(fn func(w http.ResponseWriter, r *http.Request) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Intercept = fn
}

// Favorites returns the story ids the service holds as favorites of username.
func (s *Server) Favorites(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return nil
	}
	return append([]string(nil), acc.favorites...)
}

// Calls returns "METHOD /path" for every request received so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ExpiredToken returns a correctly signed token for username that expired
// an hour ago.
func (s *Server) ExpiredToken(username string) string {
	return s.sign(username, time.Now().Add(-time.Hour))
}

func (s *Server) issueToken(username string) string {
	var exp time.Time
	if s.tokenTTL > 0 {
		exp = time.Now().Add(s.tokenTTL)
	}
	return s.sign(username, exp)
}

func (s *Server) sign(username string, exp time.Time) string {
	claims := jwt.MapClaims{"username": username, "iat": time.Now().Unix()}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

var errBadToken = errors.New("invalid token")

func (s *Server) tokenUser(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errBadToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadToken
	}
	username, _ := claims["username"].(string)
	if _, ok := s.accounts[username]; !ok {
		return "", errBadToken
	}
	return username, nil
}

func (s *Server) insertStory(username string, ns models.NewStory) models.Story {
	now := time.Now().UTC()
	story := models.Story{
		ID:        uuid.NewString(),
		Title:     ns.Title,
		Author:    ns.Author,
		URL:       ns.URL,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.stories = append([]models.Story{story}, s.stories...)
	if acc, ok := s.accounts[username]; ok {
		acc.stories = append(acc.stories, story.ID)
	}
	return story
}

func (s *Server) findStory(id string) (models.Story, bool) {
	for _, st := range s.stories {
		if st.ID == id {
			return st, true
		}
	}
	return models.Story{}, false
}

func (s *Server) accountJSON(acc *account) models.Account {
	out := models.Account{Profile: acc.profile, Favorites: []models.Story{}, Stories: []models.Story{}}
	for _, id := range acc.favorites {
		if st, ok := s.findStory(id); ok {
			out.Favorites = append(out.Favorites, st)
		}
	}
	for _, id := range acc.stories {
		if st, ok := s.findStory(id); ok {
			out.Stories = append(out.Stories, st)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		intercept := s.Intercept
		s.mu.Unlock()

		if intercept != nil && intercept(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteError writes an error body in the service's format.
func WriteError(w http.ResponseWriter, status int, msg string) {
	body := map[string]any{"error": map[string]any{
		"status":  status,
		"title":   http.StatusText(status),
		"message": msg,
	}}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type userBody struct {
	User struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
	} `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[body.User.Username]
	if !ok {
		WriteError(w, http.StatusNotFound, "No user with that username")
		return
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(body.User.Password)) != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": s.issueToken(body.User.Username),
		"user":  s.accountJSON(acc),
	})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "malformed body")
		return
	}
	u := body.User
	if u.Username == "" || u.Password == "" || u.Name == "" {
		WriteError(w, http.StatusBadRequest, "username, password and name are required")
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[u.Username]
	s.mu.Unlock()
	if exists {
		WriteError(w, http.StatusConflict, "There is already a user with that username")
		return
	}

	token := s.AddUser(u.Username, u.Password, u.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  s.accountJSON(s.accounts[u.Username]),
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	username := pathParam(r, "username")

	s.mu.Lock()
	defer s.mu.Unlock()

	caller, err := s.tokenUser(r.URL.Query().Get("token"))
	if err != nil || caller != username {
		WriteError(w, http.StatusUnauthorized, "A valid token must be provided")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": s.accountJSON(s.accounts[username])})
}

func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if skip < 0 {
		skip = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	page := []models.Story{}
	if skip < len(s.stories) {
		end := min(skip+limit, len(s.stories))
		page = append(page, s.stories[skip:end]...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": page})
}

type storyBody struct {
	Token string          `json:"token"`
	Story models.NewStory `json:"story"`
}

func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	var body storyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, err := s.tokenUser(body.Token)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "A valid token must be provided")
		return
	}
	if err := body.Story.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	story := s.insertStory(username, body.Story.Trimmed())
	writeJSON(w, http.StatusCreated, map[string]any{"story": story})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	s.favorite(w, r, func(acc *account, id string) {
		for _, f := range acc.favorites {
			if f == id {
				return
			}
		}
		acc.favorites = append(acc.favorites, id)
	}, "Favorite added!")
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	s.favorite(w, r, func(acc *account, id string) {
		kept := acc.favorites[:0]
		for _, f := range acc.favorites {
			if f != id {
				kept = append(kept, f)
			}
		}
		acc.favorites = kept
	}, "Favorite removed!")
}

func (s *Server) favorite(w http.ResponseWriter, r *http.Request, apply func(*account, string), msg string) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "malformed body")
		return
	}
	username := pathParam(r, "username")
	storyID := pathParam(r, "storyID")

	s.mu.Lock()
	defer s.mu.Unlock()

	caller, err := s.tokenUser(body.Token)
	if err != nil || caller != username {
		WriteError(w, http.StatusUnauthorized, "A valid token must be provided")
		return
	}
	if _, ok := s.findStory(storyID); !ok {
		WriteError(w, http.StatusNotFound, "No story with that ID: "+strings.TrimSpace(storyID))
		return
	}

	acc := s.accounts[username]
	apply(acc, storyID)
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "user": s.accountJSON(acc)})
}

// pathParam returns the unescaped route parameter; chi matches on the raw
// path when the request carries escaped separators.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if un, err := url.PathUnescape(v); err == nil {
		return un
	}
	return v
}
