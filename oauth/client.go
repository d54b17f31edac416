package oauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientConfig describes a provider that issues tokens through the
// client credentials grant.
type ClientConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client
}

// Client caches one token per provider and refreshes it when it expires.
type Client struct {
	config       *clientcredentials.Config
	httpClient   *http.Client
	currentToken *oauth2.Token
	tokenMu      sync.RWMutex
}

func NewOAuthClient(config ClientConfig) *Client {
	return &Client{
		config: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
			Scopes:       config.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: config.HTTPClient,
	}
}

func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	c.tokenMu.RLock()
	token := c.currentToken
	c.tokenMu.RUnlock()

	if token != nil && token.Valid() {
		return token, nil
	}
	return c.refreshToken(ctx)
}

func (c *Client) refreshToken(ctx context.Context) (*oauth2.Token, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.currentToken != nil && c.currentToken.Valid() {
		return c.currentToken, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	token, err := c.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token from %s: %w", c.config.TokenURL, err)
	}

	c.currentToken = token
	return token, nil
}

// Invalidate drops the cached token, e.g. after the provider answered 401.
func (c *Client) Invalidate() {
	c.tokenMu.Lock()
	c.currentToken = nil
	c.tokenMu.Unlock()
}

// AuthorizationHeader returns the value for the Authorization header.
func (c *Client) AuthorizationHeader(ctx context.Context) (string, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	return token.Type() + " " + token.AccessToken, nil
}
