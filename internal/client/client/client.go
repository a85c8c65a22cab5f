package client

import (
	"context"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
)

// Client is the contract the core needs from the remote news service.
type Client interface {
	Close() error
	Authenticate(ctx context.Context, username, password string) (*models.AuthResult, error)
	Register(ctx context.Context, username, password, name string) (*models.AuthResult, error)
	FetchProfile(ctx context.Context, token, username string) (*models.Account, error)
	ListStories(ctx context.Context) ([]models.Story, error)
	CreateStory(ctx context.Context, token string, story models.NewStory) (*models.Story, error)
	AddFavorite(ctx context.Context, token, username, storyID string) error
	RemoveFavorite(ctx context.Context, token, username, storyID string) error
}
