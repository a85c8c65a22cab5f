package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/newsclient/internal/client/client"
	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/logging"
)

// Toggle outcomes reported to a ToggleRecorder.
const (
	ToggleAdded   = "added"
	ToggleRemoved = "removed"
	ToggleFailed  = "failed"
)

// ToggleRecorder receives the outcome of every favorite toggle.
type ToggleRecorder interface {
	RecordToggle(result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordToggle(string) {}

// Favorites flips the favorite state of a (user, story) pair.
//
// The remote call is authoritative: local membership changes only after the
// service confirms. Toggles on the same pair run one at a time; toggles on
// different pairs run concurrently.
type Favorites struct {
	client   client.Client
	feed     *Feed
	log      logging.Logger
	recorder ToggleRecorder

	mu       sync.Mutex
	inflight map[string]*pairLock
}

type pairLock struct {
	ch   chan struct{}
	refs int
}

func NewFavorites(c client.Client, feed *Feed, log logging.Logger, recorder ToggleRecorder) *Favorites {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Favorites{
		client:   c,
		feed:     feed,
		log:      log.With("component", "favorites"),
		recorder: recorder,
		inflight: make(map[string]*pairLock),
	}
}

// Toggle adds storyID to user's favorites if absent and removes it
// otherwise. It returns the resulting membership. On failure the membership
// is unchanged and the previous state is returned with the error.
func (f *Favorites) Toggle(ctx context.Context, user *models.User, storyID string) (bool, error) {
	if !user.Authenticated() {
		return false, ErrUnauthenticated
	}
	if f.feed.FindByID(storyID) == nil {
		return user.IsFavoriteID(storyID), fmt.Errorf("%w: %s", ErrUnknownStory, storyID)
	}

	release, err := f.acquire(ctx, user.Username+"\x00"+storyID)
	if err != nil {
		return user.IsFavoriteID(storyID), fmt.Errorf("toggle favorite: %w", err)
	}
	defer release()

	log := f.log.With("username", user.Username, "story_id", storyID)

	if user.IsFavoriteID(storyID) {
		if err := f.client.RemoveFavorite(ctx, user.LoginToken, user.Username, storyID); err != nil {
			f.recorder.RecordToggle(ToggleFailed)
			log.Warn(ctx, "remove favorite failed", "error", err)
			return true, fmt.Errorf("remove favorite: %w", err)
		}
		user.RemoveFavorite(storyID)
		f.recorder.RecordToggle(ToggleRemoved)
		log.Info(ctx, "favorite removed")
		return false, nil
	}

	if err := f.client.AddFavorite(ctx, user.LoginToken, user.Username, storyID); err != nil {
		f.recorder.RecordToggle(ToggleFailed)
		log.Warn(ctx, "add favorite failed", "error", err)
		return false, fmt.Errorf("add favorite: %w", err)
	}
	user.AddFavorite(storyID)
	f.recorder.RecordToggle(ToggleAdded)
	log.Info(ctx, "favorite added")
	return true, nil
}

// acquire blocks until no other toggle holds key or ctx is done.
func (f *Favorites) acquire(ctx context.Context, key string) (func(), error) {
	f.mu.Lock()
	l, ok := f.inflight[key]
	if !ok {
		l = &pairLock{ch: make(chan struct{}, 1)}
		f.inflight[key] = l
	}
	l.refs++
	f.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		f.unref(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		f.unref(key, l)
	}, nil
}

func (f *Favorites) unref(key string, l *pairLock) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(f.inflight, key)
	}
}
