package dashboard

import (
	"net/http"
	"time"
)

const TokenCookie = "istock_token"

// cookieStore is the per-request token store backed by the token cookie.
type cookieStore struct {
	w      http.ResponseWriter
	token  string
	secure bool
}

func newCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *cookieStore {
	s := &cookieStore{w: w, secure: secure}
	if c, err := r.Cookie(TokenCookie); err == nil {
		s.token = c.Value
	}
	return s
}

func (s *cookieStore) Token() string { return s.token }

func (s *cookieStore) SetToken(token string) error {
	if token == "" {
		return s.Clear()
	}
	s.token = token
	http.SetCookie(s.w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *cookieStore) Clear() error {
	s.token = ""
	http.SetCookie(s.w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
