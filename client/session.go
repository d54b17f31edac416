package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"istock.com/dto"
	"istock.com/types"
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

const (
	msgLoginFailed    = "Login failed, check your username and password"
	msgRegisterFailed = "Registration failed"
	msgUpdateFailed   = "Failed to update user profile"
)

// Session is the auth state shared by the views: anonymous until a login
// succeeds, and back to anonymous on logout or on any 401.
type Session struct {
	client *Client
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	user    *types.User
	loading bool
	lastErr string
}

// NewSession chains itself in front of the client's 401 hook.
func NewSession(c *Client) *Session {
	s := &Session{client: c, logger: c.logger.With(zap.String("component", "session"))}
	next := c.onUnauthorized
	c.SetOnUnauthorized(func() {
		s.reset()
		if next != nil {
			next()
		}
	})
	return s
}

func (s *Session) Client() *Client { return s.client }

func (s *Session) reset() {
	s.mu.Lock()
	s.state = Anonymous
	s.user = nil
	s.mu.Unlock()
}

// State never reports Authenticated without a stored token.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authenticated && !s.client.IsAuthenticated() {
		s.state = Anonymous
		s.user = nil
	}
	return s.state
}

func (s *Session) Authenticated() bool { return s.State() == Authenticated }

func (s *Session) User() *types.User {
	if !s.Authenticated() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) fail(err error, fallback string) string {
	msg := Detail(err)
	if msg == "" {
		msg = fallback
	}
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	return msg
}

// CheckAuthStatus validates a stored token against /users/me. An invalid
// token is removed.
func (s *Session) CheckAuthStatus(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if !s.client.IsAuthenticated() {
		s.reset()
		return nil
	}
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.Warn("auth status check failed", zap.Error(err))
		if clearErr := s.client.ClearAuth(); clearErr != nil {
			s.logger.Error("clear token", zap.Error(clearErr))
		}
		s.reset()
		return err
	}

	s.mu.Lock()
	s.user = user
	s.state = Authenticated
	s.mu.Unlock()
	return nil
}

// Login returns the message shown to the user on failure.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.ClearError()
	tok, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.fail(err, msgLoginFailed)
		return err
	}

	user := tok.User
	s.mu.Lock()
	s.user = &user
	s.state = Authenticated
	s.mu.Unlock()
	return nil
}

// Register creates the account then logs in with the same credentials.
func (s *Session) Register(ctx context.Context, req dto.RegisterRequest) error {
	s.ClearError()
	if _, err := s.client.Register(ctx, req); err != nil {
		s.fail(err, msgRegisterFailed)
		return err
	}
	return s.Login(ctx, req.Username, req.Password)
}

func (s *Session) Logout() error {
	err := s.client.ClearAuth()
	s.mu.Lock()
	s.state = Anonymous
	s.user = nil
	s.lastErr = ""
	s.mu.Unlock()
	return err
}

func (s *Session) UpdateProfile(ctx context.Context, req dto.UpdateUserRequest) error {
	user, err := s.client.UpdateUser(ctx, req)
	if err != nil {
		s.fail(err, msgUpdateFailed)
		return err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}
