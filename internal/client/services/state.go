package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/logging"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// State holds the current identity and feed for the lifetime of the client.
// Init restores it, Logout tears the identity down. All reads return copies.
type State struct {
	sessions  SessionStore
	users     *UserService
	feed      *Feed
	favorites *Favorites
	log       logging.Logger

	mu   sync.RWMutex
	user *models.User
	// account holds the story records the current user's favorites and own
	// stories refer to; they are merged into the feed on every load.
	account []models.Story

	persistMu sync.Mutex
}

func NewState(sessions SessionStore, users *UserService, feed *Feed, favorites *Favorites, log logging.Logger) *State {
	return &State{
		sessions:  sessions,
		users:     users,
		feed:      feed,
		favorites: favorites,
		log:       log.With("component", "state"),
	}
}

// Init restores a stored session and loads the feed concurrently.
//
// A stored session the service rejects is cleared. If the service cannot be
// reached the stored session is kept and the client starts anonymous. The
// returned error is the feed load failure, if any; the identity is set either
// way.
func (s *State) Init(ctx context.Context) error {
	creds, err := s.sessions.Restore(ctx)
	if err != nil {
		s.log.Warn(ctx, "cannot read stored session", "error", err)
		creds = nil
	}

	var (
		g       errgroup.Group
		user    *models.User
		account []models.Story
	)

	g.Go(func() error {
		if creds == nil {
			return nil
		}
		u, stories, err := s.users.restore(ctx, creds.Token, creds.Username)
		if err != nil {
			s.log.Warn(ctx, "cannot restore session, keeping it for later", "username", creds.Username, "error", err)
			return nil
		}
		if u == nil {
			if err := s.sessions.Clear(ctx); err != nil {
				s.log.Warn(ctx, "cannot clear rejected session", "error", err)
			}
			return nil
		}
		user, account = u, stories
		return nil
	})

	g.Go(func() error {
		_, err := s.feed.Load(ctx)
		return err
	})

	err = g.Wait()

	s.setUser(user, account)
	return err
}

// Login authenticates and makes the identity current. A persistence failure
// is logged; the in-memory identity stays authoritative.
func (s *State) Login(ctx context.Context, username, password string) (*models.User, error) {
	u, account, err := s.users.login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	s.setUser(u, account)
	s.persist(ctx, u)
	return u, nil
}

// Register creates an account and makes it current.
func (s *State) Register(ctx context.Context, username, password, name string) (*models.User, error) {
	u, account, err := s.users.create(ctx, username, password, name)
	if err != nil {
		return nil, err
	}
	s.setUser(u, account)
	s.persist(ctx, u)
	return u, nil
}

// Logout drops the identity and clears the stored session. The identity is
// dropped even if clearing fails; the error is returned for reporting.
func (s *State) Logout(ctx context.Context) error {
	s.setUser(nil, nil)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.sessions.Clear(ctx)
}

// Submit posts a story as the current user.
func (s *State) Submit(ctx context.Context, fields models.NewStory) (*models.Story, error) {
	return s.feed.Submit(ctx, s.CurrentUser(), fields)
}

// ToggleFavorite flips the favorite state of storyID for the current user
// and returns the new state.
func (s *State) ToggleFavorite(ctx context.Context, storyID string) (bool, error) {
	u := s.CurrentUser()
	favorite, err := s.favorites.Toggle(ctx, u, storyID)
	if err != nil {
		return favorite, err
	}
	s.persist(ctx, u)
	return favorite, nil
}

// Refresh reloads the feed from the service. Stories of the current account
// missing from the listing are merged back in.
func (s *State) Refresh(ctx context.Context) error {
	if _, err := s.feed.Load(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	account := s.account
	s.mu.RUnlock()
	s.feed.Merge(account...)
	return nil
}

func (s *State) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *State) Stories() []models.Story {
	return s.feed.Stories()
}

func (s *State) FindStory(id string) *models.Story {
	return s.feed.FindByID(id)
}

// FavoriteStories returns the current user's favorites that are in the
// feed, in feed order.
func (s *State) FavoriteStories() []models.Story {
	u := s.CurrentUser()
	if u == nil {
		return nil
	}
	return lo.Filter(s.feed.Stories(), func(st models.Story, _ int) bool {
		return u.IsFavorite(&st)
	})
}

// OwnStories returns the current user's stories that are in the feed, in
// feed order.
func (s *State) OwnStories() []models.Story {
	u := s.CurrentUser()
	if u == nil {
		return nil
	}
	return lo.Filter(s.feed.Stories(), func(st models.Story, _ int) bool {
		return u.IsOwner(&st)
	})
}

// setUser makes u current and merges the stories its account refers to into
// the feed, so every favorite and own story can be found and toggled.
func (s *State) setUser(u *models.User, account []models.Story) {
	s.mu.Lock()
	s.user = u
	s.account = account
	s.mu.Unlock()

	s.feed.Merge(account...)
}

// persist is skipped when u is no longer current, so a toggle finishing
// after Logout cannot resurrect the stored session. Writes are serialized and
// each one snapshots the favorites after taking the lock, so the last write
// carries the latest set.
func (s *State) persist(ctx context.Context, u *models.User) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.CurrentUser() != u {
		return
	}
	if err := s.sessions.Persist(ctx, u); err != nil {
		s.log.Warn(ctx, "cannot persist session", "username", u.Username, "error", err)
	}
}
