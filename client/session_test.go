package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/dto"
)

func TestSession_LoginLogout(t *testing.T) {
	srv := fakeAPI(t)
	s := NewSession(newTestClient(srv, NewMemoryStore(""), nil))
	ctx := context.Background()

	assert.Equal(t, Anonymous, s.State())
	require.NoError(t, s.Login(ctx, "alice", "s3cretpass"))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "alice", s.User().Username)

	require.NoError(t, s.Logout())
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User())
	assert.False(t, s.Client().IsAuthenticated())
}

func TestSession_LoginFailureMessage(t *testing.T) {
	srv := fakeAPI(t)
	s := NewSession(newTestClient(srv, NewMemoryStore(""), nil))

	err := s.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", s.Err())
	assert.False(t, s.Authenticated())

	s.ClearError()
	assert.Equal(t, "", s.Err())
}

func TestSession_RegisterAutoLogin(t *testing.T) {
	srv := fakeAPI(t)
	s := NewSession(newTestClient(srv, NewMemoryStore(""), nil))
	ctx := context.Background()

	err := s.Register(ctx, dto.RegisterRequest{Username: "taken", Email: "t@example.com", Password: "s3cretpass"})
	require.Error(t, err)
	assert.Equal(t, "username already registered", s.Err())

	require.NoError(t, s.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "s3cretpass"}))
	assert.True(t, s.Authenticated())
}

func TestSession_CheckAuthStatus(t *testing.T) {
	srv := fakeAPI(t)
	ctx := context.Background()

	good := NewSession(newTestClient(srv, NewMemoryStore("good-token"), nil))
	require.NoError(t, good.CheckAuthStatus(ctx))
	assert.True(t, good.Authenticated())
	assert.False(t, good.Loading())

	store := NewMemoryStore("expired")
	bad := NewSession(newTestClient(srv, store, nil))
	assert.Error(t, bad.CheckAuthStatus(ctx))
	assert.False(t, bad.Authenticated())
	assert.Equal(t, "", store.Token())

	none := NewSession(newTestClient(srv, NewMemoryStore(""), nil))
	require.NoError(t, none.CheckAuthStatus(ctx))
	assert.False(t, none.Authenticated())
}

func TestSession_401MovesToAnonymous(t *testing.T) {
	srv := fakeAPI(t)
	hooked := false
	c := newTestClient(srv, NewMemoryStore(""), func() { hooked = true })
	s := NewSession(c)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "alice", "s3cretpass"))
	require.NoError(t, c.SetAuthToken("revoked"))

	_, err := c.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, hooked)
	assert.Equal(t, Anonymous, s.State())
	assert.Equal(t, "", c.Store().Token())
}
