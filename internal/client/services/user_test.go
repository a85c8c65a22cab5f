package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/newsclient/internal/client/apitest"
	"github.com/dmitrijs2005/newsclient/internal/client/client"
	"github.com/dmitrijs2005/newsclient/internal/client/models"
	"github.com/dmitrijs2005/newsclient/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIClient(t *testing.T, srv *apitest.Server) client.Client {
	t.Helper()
	c, err := client.NewHTTPClient(srv.URL)
	require.NoError(t, err)
	return c
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"username": "ada"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestUserService_Login(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "pw", "Ada Lovelace")
	mine := srv.SeedStory("ada", "Mine", "http://example.com/mine")

	svc := NewUserService(newAPIClient(t, srv), logging.Discard())

	u, err := svc.Login(context.Background(), "ada", "pw")
	require.NoError(t, err)
	assert.True(t, u.Authenticated())
	assert.Equal(t, "ada", u.Username)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.True(t, u.IsOwner(&mine))
	assert.Empty(t, u.FavoriteIDs())
}

func TestUserService_LoginRejected(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "pw", "Ada")
	svc := NewUserService(newAPIClient(t, srv), logging.Discard())

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "ada", "nope"},
		{"unknown user", "bob", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.Login(context.Background(), tt.username, tt.password)
			require.ErrorIs(t, err, client.ErrUnauthorized)
			assert.Nil(t, u)
		})
	}
}

func TestUserService_LoginEmptyDoesNotCallService(t *testing.T) {
	fc := &fakeClient{}
	svc := NewUserService(fc, logging.Discard())

	_, err := svc.Login(context.Background(), "  ", "pw")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	_, err = svc.Login(context.Background(), "ada", "")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	assert.Empty(t, fc.calls())
}

func TestUserService_Create(t *testing.T) {
	srv := apitest.NewServer(t)
	svc := NewUserService(newAPIClient(t, srv), logging.Discard())
	ctx := context.Background()

	u, err := svc.Create(ctx, "grace", "pw", "Grace Hopper")
	require.NoError(t, err)
	assert.Equal(t, "grace", u.Username)
	assert.NotEmpty(t, u.LoginToken)

	_, err = svc.Create(ctx, "grace", "other", "Someone Else")
	require.ErrorIs(t, err, client.ErrValidation)

	_, err = svc.Create(ctx, "linus", "pw", "")
	require.ErrorIs(t, err, client.ErrValidation)
}

func TestUserService_RestoreFromSession(t *testing.T) {
	srv := apitest.NewServer(t)
	token := srv.AddUser("ada", "pw", "Ada")
	s := srv.SeedStory("ada", "Mine", "http://example.com")

	svc := NewUserService(newAPIClient(t, srv), logging.Discard())
	ctx := context.Background()

	u, err := svc.RestoreFromSession(ctx, token, "ada")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, token, u.LoginToken)
	assert.True(t, u.IsOwner(&s))

	u, err = svc.RestoreFromSession(ctx, "garbage", "ada")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = svc.RestoreFromSession(ctx, token, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserService_RestoreFromSessionAbsent(t *testing.T) {
	fc := &fakeClient{}
	svc := NewUserService(fc, logging.Discard())

	u, err := svc.RestoreFromSession(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, fc.calls())
}

func TestUserService_RestoreFromSessionExpired(t *testing.T) {
	fc := &fakeClient{Profile: &models.Account{Profile: models.Profile{Username: "ada"}}}
	svc := NewUserService(fc, logging.Discard())

	u, err := svc.RestoreFromSession(context.Background(), signedToken(t, time.Now().Add(-time.Minute)), "ada")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, fc.calls(), "an expired token must not reach the service")
}

func TestUserService_RestoreFromSessionTransient(t *testing.T) {
	fc := &fakeClient{ProfileErr: client.ErrUnavailable}
	svc := NewUserService(fc, logging.Discard())

	u, err := svc.RestoreFromSession(context.Background(), "T1", "ada")
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Nil(t, u)
}

func TestUserService_RestoreFromSessionServerExpired(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "pw", "Ada")
	svc := NewUserService(newAPIClient(t, srv), logging.Discard())

	u, err := svc.RestoreFromSession(context.Background(), srv.ExpiredToken("ada"), "ada")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, srv.Calls())
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"opaque token", "T1", false},
		{"no exp claim", signedToken(t, time.Time{}), false},
		{"future exp", signedToken(t, now.Add(time.Hour)), false},
		{"past exp", signedToken(t, now.Add(-time.Hour)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenExpired(tt.token, now))
		})
	}
}

func TestUserService_LoginWrapsTransportError(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeClient{AuthErr: boom}
	svc := NewUserService(fc, logging.Discard())

	_, err := svc.Login(context.Background(), "ada", "pw")
	require.ErrorIs(t, err, boom)
}
