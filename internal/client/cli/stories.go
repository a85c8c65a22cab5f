package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/client/services"
)

// Feed shows every known story, newest first.
func (a *App) Feed(ctx context.Context) error {
	a.show(ViewFeed)
	a.listed = renderStories(a.out, a.state.Stories(), a.state.CurrentUser(), "No stories yet.")
	return nil
}

// Favorites shows the current user's favorited stories.
func (a *App) Favorites(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Log in to see your favorites.")
		return nil
	}
	a.show(ViewFavorites)
	a.listed = renderStories(a.out, a.state.FavoriteStories(), a.state.CurrentUser(), "No favorites added!")
	return nil
}

// Mine shows the stories submitted by the current user.
func (a *App) Mine(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Log in to see your stories.")
		return nil
	}
	a.show(ViewMine)
	a.listed = renderStories(a.out, a.state.OwnStories(), a.state.CurrentUser(), "No stories added by user yet!")
	return nil
}

// Profile shows the current user's account details.
func (a *App) Profile(ctx context.Context) error {
	u := a.state.CurrentUser()
	if !u.Authenticated() {
		fmt.Fprintln(a.out, "Log in to see your profile.")
		return nil
	}
	a.show(ViewProfile)
	renderProfile(a.out, u)
	return nil
}

// Submit shows the story form and posts the story as the current user.
func (a *App) Submit(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, describeError(services.ErrUnauthenticated))
		return services.ErrUnauthenticated
	}
	a.show(ViewSubmit)

	var fields models.NewStory
	var err error
	if fields.Author, err = getSimpleText(a.reader, "Author", a.out); err != nil {
		return err
	}
	if fields.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if fields.URL, err = getSimpleText(a.reader, "URL", a.out); err != nil {
		return err
	}

	s, err := a.state.Submit(ctx, fields)
	if err != nil {
		fmt.Fprintln(a.out, describeError(err))
		return err
	}

	fmt.Fprintf(a.out, "Story %s submitted.\n", s.ID)
	return a.Feed(ctx)
}

// ToggleFavorite flips the favorite state of a story. ref is either a
// story id or the 1-based position in the last list shown.
func (a *App) ToggleFavorite(ctx context.Context, ref string) error {
	id := a.resolveStory(ref)

	favorite, err := a.state.ToggleFavorite(ctx, id)
	if err != nil {
		fmt.Fprintln(a.out, describeError(err))
		return err
	}

	if s := a.state.FindStory(id); s != nil {
		if favorite {
			fmt.Fprintf(a.out, "★ Added %q to favorites.\n", clean(s.Title))
		} else {
			fmt.Fprintf(a.out, "☆ Removed %q from favorites.\n", clean(s.Title))
		}
	}
	return nil
}

// Refresh reloads the feed from the service and shows it.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.state.Refresh(ctx); err != nil {
		fmt.Fprintln(a.out, describeError(err))
		return err
	}
	return a.Feed(ctx)
}

func (a *App) resolveStory(ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(a.listed) {
		return a.listed[n-1]
	}
	return ref
}
