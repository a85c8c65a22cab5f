// Package cli provides the interactive terminal client for the news service.
//
// It wires configuration, the local session store, the service client and
// the application State, then runs a REPL. Each command switches to one view
// (feed, favorites, own stories, profile, or a login/signup/submit form) and
// renders it.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
