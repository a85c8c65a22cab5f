package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Feed(ctx context.Context) error
	Favorites(ctx context.Context) error
	Mine(ctx context.Context) error
	Profile(ctx context.Context) error
	Submit(ctx context.Context) error
	ToggleFavorite(ctx context.Context, ref string) error
	Refresh(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: (s)tories, refresh, login, signup, exit"
	helpLoggedIn  = "Available commands: (s)tories, (f)avorites, mine, profile, submit, fav <n|id>, refresh, logout, exit"
)

// runREPL reads commands from reader until EOF, "exit"/"quit" or ctx
// cancellation, and dispatches them to a.
//
// The prompt shows the current status (from statusFn). Errors returned by
// command handlers are ignored here; handlers report them to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("news %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "signup", "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "s", "stories", "feed":
			_ = a.Feed(ctx)

		case "f", "favorites":
			_ = a.Favorites(ctx)

		case "mine":
			_ = a.Mine(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "submit":
			_ = a.Submit(ctx)

		case "fav":
			if len(args) == 0 {
				printlnFn("Usage: fav <number|story id>")
				continue
			}
			_ = a.ToggleFavorite(ctx, args[0])

		case "refresh":
			_ = a.Refresh(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
