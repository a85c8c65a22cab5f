package models

import (
	"sync"
	"time"
)

// Credentials is the persisted part of a session.
type Credentials struct {
	Token    string
	Username string
}

// Profile is the public part of an account.
type Profile struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Account is a profile together with the stories the service reports as
// favorited and authored by it.
type Account struct {
	Profile
	Favorites []Story `json:"favorites"`
	Stories   []Story `json:"stories"`
}

// AuthResult is returned by the remote service on login and signup.
type AuthResult struct {
	Token   string
	Account Account
}

// User is the authenticated identity. Favorites and own stories are kept as
// story identifiers; the story records themselves live in the feed.
//
// User is safe for concurrent use.
type User struct {
	Username   string
	Name       string
	CreatedAt  time.Time
	LoginToken string

	mu         sync.RWMutex
	favorites  *idSet
	ownStories *idSet
}

// NewUser builds an identity from an account snapshot and its login token.
func NewUser(token string, acc Account) *User {
	return &User{
		Username:   acc.Username,
		Name:       acc.Name,
		CreatedAt:  acc.CreatedAt,
		LoginToken: token,
		favorites:  newIDSet(storyIDs(acc.Favorites)...),
		ownStories: newIDSet(storyIDs(acc.Stories)...),
	}
}

func storyIDs(stories []Story) []string {
	ids := make([]string, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	return ids
}

// Authenticated reports whether u carries a login token. A nil user is
// anonymous.
func (u *User) Authenticated() bool {
	return u != nil && u.LoginToken != ""
}

// Credentials returns the token/username pair to persist.
func (u *User) Credentials() Credentials {
	return Credentials{Token: u.LoginToken, Username: u.Username}
}

func (u *User) IsOwner(s *Story) bool {
	if u == nil || s == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ownStories.has(s.ID)
}

func (u *User) IsFavorite(s *Story) bool {
	if u == nil || s == nil {
		return false
	}
	return u.IsFavoriteID(s.ID)
}

func (u *User) IsFavoriteID(id string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.favorites.has(id)
}

// AddFavorite records id as favorited. It reports false if it already was.
func (u *User) AddFavorite(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.favorites.add(id)
}

// RemoveFavorite drops id from favorites. It reports false if it was absent.
func (u *User) RemoveFavorite(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.favorites.remove(id)
}

// AddOwnStory records id as authored by u.
func (u *User) AddOwnStory(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ownStories.add(id)
}

// FavoriteIDs returns favorited story ids in insertion order.
func (u *User) FavoriteIDs() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.favorites.list()
}

// OwnStoryIDs returns authored story ids in insertion order.
func (u *User) OwnStoryIDs() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ownStories.list()
}
