package services

import "errors"

var (
	// ErrUnauthenticated is returned when a mutating operation is attempted
	// without an active session.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrUnknownStory is returned when a story id is not present in the feed.
	ErrUnknownStory = errors.New("unknown story")

	// ErrPersistence wraps local session store failures.
	ErrPersistence = errors.New("session store unavailable")
)
