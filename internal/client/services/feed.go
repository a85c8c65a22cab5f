package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/newsclient/internal/client/client"
	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/logging"
)

// Feed is the ordered collection of known stories, newest first. A story id
// appears at most once. Feed is safe for concurrent use.
type Feed struct {
	client client.Client
	log    logging.Logger

	mu      sync.RWMutex
	stories []models.Story
}

func NewFeed(c client.Client, log logging.Logger) *Feed {
	return &Feed{client: c, log: log.With("component", "feed")}
}

// Load replaces the feed with the service's current collection. On failure
// the previous feed is kept.
func (f *Feed) Load(ctx context.Context) ([]models.Story, error) {
	stories, err := f.client.ListStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}

	seen := make(map[string]struct{}, len(stories))
	fresh := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		fresh = append(fresh, s)
	}

	f.mu.Lock()
	f.stories = fresh
	f.mu.Unlock()

	f.log.Debug(ctx, "feed loaded", "count", len(fresh))
	return f.Stories(), nil
}

// Submit creates a story on behalf of author, puts it at the front of the
// feed and records it in author's own stories.
func (f *Feed) Submit(ctx context.Context, author *models.User, fields models.NewStory) (*models.Story, error) {
	if !author.Authenticated() {
		return nil, ErrUnauthenticated
	}

	fields = fields.Trimmed()
	if err := fields.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", client.ErrValidation, err)
	}

	story, err := f.client.CreateStory(ctx, author.LoginToken, fields)
	if err != nil {
		return nil, fmt.Errorf("submit story: %w", err)
	}

	f.prepend(*story)
	author.AddOwnStory(story.ID)

	f.log.Info(ctx, "story submitted", "story_id", story.ID, "username", author.Username)
	return story, nil
}

func (f *Feed) prepend(s models.Story) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make([]models.Story, 0, len(f.stories)+1)
	next = append(next, s)
	for _, existing := range f.stories {
		if existing.ID != s.ID {
			next = append(next, existing)
		}
	}
	f.stories = next
}

// Merge adds the stories the feed does not hold yet, each placed before the
// first older story so the feed stays newest first. Stories without an id are
// skipped. It returns how many were added.
func (f *Feed) Merge(stories ...models.Story) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]struct{}, len(f.stories))
	for _, s := range f.stories {
		seen[s.ID] = struct{}{}
	}

	added := 0
	for _, s := range stories {
		if _, dup := seen[s.ID]; dup || s.ID == "" {
			continue
		}
		seen[s.ID] = struct{}{}

		at := len(f.stories)
		for i := range f.stories {
			if f.stories[i].CreatedAt.Before(s.CreatedAt) {
				at = i
				break
			}
		}
		f.stories = slices.Insert(f.stories, at, s)
		added++
	}
	return added
}

// FindByID returns a copy of the story with the given id, or nil.
func (f *Feed) FindByID(id string) *models.Story {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for i := range f.stories {
		if f.stories[i].ID == id {
			s := f.stories[i]
			return &s
		}
	}
	return nil
}

// Stories returns a snapshot of the feed.
func (f *Feed) Stories() []models.Story {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Story, len(f.stories))
	copy(out, f.stories)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.stories)
}
