// Package models defines client-side data models used by the news CLI.
package models

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Story is an immutable record of a submitted link. ID is assigned by the
// remote service on creation.
type Story struct {
	ID        string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Hostname returns the story URL host without a leading "www.".
// URLs without a scheme are treated as "host/path".
func (s Story) Hostname() string {
	return hostname(s.URL)
}

func hostname(raw string) string {
	host := raw
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			host = u.Hostname()
		} else {
			host = strings.SplitN(strings.SplitN(raw, "://", 2)[1], "/", 2)[0]
		}
	} else {
		host = strings.SplitN(raw, "/", 2)[0]
	}
	return strings.TrimPrefix(host, "www.")
}

// NewStory holds the user-supplied fields of a submission.
type NewStory struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

var (
	ErrEmptyTitle  = errors.New("title is required")
	ErrEmptyAuthor = errors.New("author is required")
	ErrInvalidURL  = errors.New("url must be an absolute http(s) URL")
)

// Validate checks that all fields are present and that URL is an absolute
// http or https URL.
func (n NewStory) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(n.Author) == "" {
		return ErrEmptyAuthor
	}
	u, err := url.Parse(strings.TrimSpace(n.URL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (n NewStory) Trimmed() NewStory {
	return NewStory{
		Title:  strings.TrimSpace(n.Title),
		Author: strings.TrimSpace(n.Author),
		URL:    strings.TrimSpace(n.URL),
	}
}
