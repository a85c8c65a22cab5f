package cli

import (
	"context"
	"fmt"
)

// getStatus renders the navigation line: the logged-in user and the view.
func (a *App) getStatus() string {
	s := a.view.String()
	if u := a.state.CurrentUser(); u.Authenticated() {
		s = clean(u.Username) + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// Root prints the welcome banner, shows the feed and runs the REPL on the
// app's input.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Hack or Snooze (type 'help' for commands)")
	if u := a.state.CurrentUser(); u.Authenticated() {
		fmt.Fprintf(a.out, "Logged in as %s.\n", clean(u.Username))
	}
	_ = a.Feed(ctx)

	runREPL(ctx, a, a.getStatus, a.reader)
}
