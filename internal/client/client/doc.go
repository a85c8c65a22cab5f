// Package client contains client-side building blocks for the news CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) to talk
//     to the news service: Authenticate/Register/FetchProfile, ListStories,
//     CreateStory, AddFavorite/RemoveFavorite.
//  2. A concrete REST/JSON implementation (see HTTPClient) that paces calls,
//     tags every request with an X-Request-ID and maps HTTP status codes to
//     sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnauthorized, ErrValidation, ErrNotFound, ErrUnavailable.
// Transport failures, timeouts and 5xx responses all map to ErrUnavailable.
// The client never retries.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
