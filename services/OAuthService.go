package services

import (
	"strings"
	"sync"

	"istock.com/oauth"
	"istock.com/shared"
	"istock.com/types"
)

// OAuthService keeps one token client per data source so that providers
// built on every sync share cached tokens.
type OAuthService struct {
	mu      sync.Mutex
	clients map[string]*oauth.Client
}

var (
	oauthService     *OAuthService
	oauthServiceOnce sync.Once
)

func GetOAuthService() *OAuthService {
	oauthServiceOnce.Do(func() {
		oauthService = &OAuthService{clients: map[string]*oauth.Client{}}
	})
	return oauthService
}

// ClientFor returns nil when the source has no client credentials configured.
func (s *OAuthService) ClientFor(src *types.DataSource) *oauth.Client {
	if src.TokenURL == "" || src.ClientID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := src.Name + "|" + src.TokenURL + "|" + src.ClientID
	if c, ok := s.clients[key]; ok {
		return c
	}
	c := oauth.NewOAuthClient(oauth.ClientConfig{
		TokenURL:     src.TokenURL,
		ClientID:     src.ClientID,
		ClientSecret: src.ClientSecret,
		HTTPClient:   shared.HttpClient(providerTimeout),
	})
	s.clients[key] = c
	return c
}

// Forget drops the cached clients of a source after its settings changed.
func (s *OAuthService) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.clients {
		if strings.HasPrefix(key, name+"|") {
			delete(s.clients, key)
		}
	}
}
