package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/newsclient/internal/client/client"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Login shows the login form and makes the account current on success.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	a.show(ViewLogin)

	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.state.Login(ctx, username, string(password))
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintln(a.out, "Invalid username or password.")
		} else {
			fmt.Fprintln(a.out, describeError(err))
		}
		return err
	}

	fmt.Fprintf(a.out, "Welcome back, %s!\n", clean(u.Name))
	return a.Feed(ctx)
}

// Register shows the signup form, creates the account and logs it in.
func (a *App) Register(ctx context.Context) error {
	a.show(ViewSignup)

	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Choose a username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.state.Register(ctx, username, string(password), name)
	if err != nil {
		fmt.Fprintln(a.out, describeError(err))
		return err
	}

	fmt.Fprintf(a.out, "Account %s created.\n", clean(u.Username))
	return a.Feed(ctx)
}

// Logout forgets the stored session and returns to the anonymous feed.
func (a *App) Logout(ctx context.Context) error {
	err := a.state.Logout(ctx)
	if err != nil {
		a.log.Warn(ctx, "cannot clear stored session", "error", err)
		fmt.Fprintln(a.out, "Logged out, but the stored session could not be removed.")
	} else {
		fmt.Fprintln(a.out, "Logged out.")
	}
	a.show(ViewFeed)
	return err
}
