package cli

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/microcosm-cc/bluemonday"
)

const dateLayout = "2006-01-02"

// remote fields are untrusted; strip any markup before printing
var textPolicy = bluemonday.StrictPolicy()

// clean turns a remote field into one line of plain text. Control characters
// (escape sequences included) and bidi overrides are dropped after unescaping,
// since an entity like &#27; decodes to ESC. Whitespace controls become spaces.
func clean(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Bidi_Control, r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// renderStories prints stories as a numbered list and returns the ids in
// display order. user may be nil.
func renderStories(w io.Writer, stories []models.Story, user *models.User, empty string) []string {
	if len(stories) == 0 {
		fmt.Fprintln(w, empty)
		return nil
	}

	ids := make([]string, 0, len(stories))
	for i := range stories {
		s := &stories[i]
		ids = append(ids, s.ID)
		fmt.Fprintln(w, formatStory(i+1, s, user))
	}
	return ids
}

// formatStory renders one story as two lines:
//
//	 1. * Title (host)
//	      by Author | posted by username | id
func formatStory(n int, s *models.Story, user *models.User) string {
	marker := " "
	if user.Authenticated() {
		marker = "☆"
		if user.IsFavorite(s) {
			marker = "★"
		}
	}

	title := clean(s.Title)
	if host := s.Hostname(); host != "" {
		title += " (" + clean(host) + ")"
	}

	meta := []string{"by " + clean(s.Author), "posted by " + clean(s.Username)}
	if user.IsOwner(s) {
		meta = append(meta, "yours")
	}
	meta = append(meta, s.ID)

	return fmt.Sprintf("%2d. %s %s\n      %s", n, marker, title, strings.Join(meta, " | "))
}

func renderProfile(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "Name: %s\n", clean(u.Name))
	fmt.Fprintf(w, "Username: %s\n", clean(u.Username))
	fmt.Fprintf(w, "Account created: %s\n", formatDate(u.CreatedAt))
	fmt.Fprintf(w, "Favorites: %d, stories: %d\n", len(u.FavoriteIDs()), len(u.OwnStoryIDs()))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(dateLayout)
}
