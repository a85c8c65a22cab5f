package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsclient/internal/client/client"
	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// UserService builds identities from the remote service. It does not check
// credentials itself.
type UserService struct {
	client client.Client
	log    logging.Logger
	now    func() time.Time
}

func NewUserService(c client.Client, log logging.Logger) *UserService {
	return &UserService{client: c, log: log.With("component", "users"), now: time.Now}
}

// Login authenticates username and returns the identity with the favorites
// and own stories reported by the service.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	u, _, err := s.login(ctx, username, password)
	return u, err
}

// login also returns the story records the account refers to, so the caller
// can make them reachable through the feed.
func (s *UserService) login(ctx context.Context, username, password string) (*models.User, []models.Story, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: username and password are required", client.ErrUnauthorized)
	}

	res, err := s.client.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info(ctx, "logged in", "username", res.Account.Username)
	return models.NewUser(res.Token, res.Account), accountStories(res.Account), nil
}

// Create registers a new account. A taken username yields client.ErrValidation.
func (s *UserService) Create(ctx context.Context, username, password, name string) (*models.User, error) {
	u, _, err := s.create(ctx, username, password, name)
	return u, err
}

func (s *UserService) create(ctx context.Context, username, password, name string) (*models.User, []models.Story, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" || password == "" || name == "" {
		return nil, nil, fmt.Errorf("%w: name, username and password are required", client.ErrValidation)
	}

	res, err := s.client.Register(ctx, username, password, name)
	if err != nil {
		return nil, nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info(ctx, "account created", "username", res.Account.Username)
	return models.NewUser(res.Token, res.Account), accountStories(res.Account), nil
}

// RestoreFromSession re-hydrates an identity from a stored token.
//
// It returns (nil, nil) when the token is absent, already expired, or
// rejected by the service. Any other failure (service unreachable) is
// returned so the caller can keep the stored session for a later attempt.
func (s *UserService) RestoreFromSession(ctx context.Context, token, username string) (*models.User, error) {
	u, _, err := s.restore(ctx, token, username)
	return u, err
}

func (s *UserService) restore(ctx context.Context, token, username string) (*models.User, []models.Story, error) {
	if token == "" || username == "" {
		return nil, nil, nil
	}
	if tokenExpired(token, s.now()) {
		s.log.Info(ctx, "stored token expired", "username", username)
		return nil, nil, nil
	}

	acc, err := s.client.FetchProfile(ctx, token, username)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			s.log.Info(ctx, "stored token rejected", "username", username)
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("restore session: %w", err)
	}

	return models.NewUser(token, *acc), accountStories(*acc), nil
}

// accountStories lists the favorites followed by the own stories of acc.
func accountStories(acc models.Account) []models.Story {
	out := make([]models.Story, 0, len(acc.Favorites)+len(acc.Stories))
	out = append(out, acc.Favorites...)
	return append(out, acc.Stories...)
}

// tokenExpired reports whether token is a JWT whose exp claim is before now.
// Opaque tokens and JWTs without exp are left for the service to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
