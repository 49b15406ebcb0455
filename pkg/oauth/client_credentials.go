package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrTokenRequest = errors.New("failed to obtain access token")

// ClientCredentialsConfig holds the configuration for a machine-to-machine token source
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	// ExpirySkew refreshes the token this long before it actually expires
	ExpirySkew time.Duration
	HTTPClient *http.Client
}

// TokenProvider caches a client-credentials access token and refreshes it
// shortly before expiry. Safe for concurrent use.
type TokenProvider struct {
	config     *clientcredentials.Config
	skew       time.Duration
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenProvider creates a new client-credentials token provider
func NewTokenProvider(cfg ClientCredentialsConfig) *TokenProvider {
	return &TokenProvider{
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
		skew:       cfg.ExpirySkew,
		httpClient: cfg.HTTPClient,
		now:        time.Now,
	}
}

// IsConfigured checks if client credentials are present
func (p *TokenProvider) IsConfigured() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

// Token returns a cached access token, fetching a new one when the cached
// token is missing or about to expire
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && p.fresh(p.token) {
		return p.token.AccessToken, nil
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.config.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	p.token = token
	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
// Called when the resource server rejects the token.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
}

func (p *TokenProvider) fresh(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return true
	}
	return p.now().Add(p.skew).Before(token.Expiry)
}
