// Package services contains application services for the news client:
// the session store, the user model, the story feed, the favorites
// reconciler and the State that ties them together.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/newsclient/internal/dbx"
)

const (
	keyToken     = "token"
	keyUsername  = "username"
	keyFavorites = "favorites"
)

// SessionStore persists the logged-in identity across restarts.
//
// Contract:
//   - Restore: read the stored token and username; (nil, nil) if absent.
//   - Persist: overwrite the stored token, username and favorite ids. No-op
//     for an anonymous user.
//   - Clear: erase everything; a later Restore returns (nil, nil).
//
// Failures wrap ErrPersistence and are never retried.
type SessionStore interface {
	Restore(ctx context.Context) (*models.Credentials, error)
	Persist(ctx context.Context, user *models.User) error
	Clear(ctx context.Context) error
}

// sqliteSessionStore keeps the session in the local metadata table. repo
// binds the metadata repository to the database or to a transaction.
type sqliteSessionStore struct {
	db   *sql.DB
	repo func(dbx.DBTX) metadata.Repository
}

// NewSessionStore returns a SessionStore backed by the metadata table of db.
func NewSessionStore(db *sql.DB) SessionStore {
	return &sqliteSessionStore{db: db, repo: sqliteRepository}
}

func sqliteRepository(q dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(q)
}

func (s *sqliteSessionStore) Restore(ctx context.Context) (*models.Credentials, error) {
	stored, err := s.repo(s.db).GetMany(ctx, keyToken, keyUsername)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	token, username := stored[keyToken], stored[keyUsername]

	if len(token) == 0 || len(username) == 0 {
		return nil, nil
	}
	return &models.Credentials{Token: string(token), Username: string(username)}, nil
}

// Persist writes token, username and favorite ids in a single transaction.
func (s *sqliteSessionStore) Persist(ctx context.Context, user *models.User) error {
	if !user.Authenticated() {
		return nil
	}

	favorites, err := json.Marshal(user.FavoriteIDs())
	if err != nil {
		return fmt.Errorf("%w: encode favorites: %w", ErrPersistence, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).SetMany(ctx, map[string][]byte{
			keyToken:     []byte(user.LoginToken),
			keyUsername:  []byte(user.Username),
			keyFavorites: favorites,
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *sqliteSessionStore) Clear(ctx context.Context) error {
	if err := s.repo(s.db).Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
