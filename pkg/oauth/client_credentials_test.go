package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, expiresIn int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"bearer","expires_in":%d}`, n, expiresIn)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestProvider(url string, skew time.Duration) *TokenProvider {
	return NewTokenProvider(ClientCredentialsConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     url,
		ExpirySkew:   skew,
	})
}

func TestTokenProvider_CachesUntilSkew(t *testing.T) {
	server, calls := newTokenServer(t, 3600)
	provider := newTestProvider(server.URL, time.Minute)

	first, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	second, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if first != "token-1" || second != "token-1" {
		t.Errorf("expected cached token-1 twice, got %q and %q", first, second)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expected 1 token request, got %d", n)
	}
}

func TestTokenProvider_RefreshesInsideSkew(t *testing.T) {
	server, calls := newTokenServer(t, 3600)
	provider := newTestProvider(server.URL, time.Minute)

	if _, err := provider.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	// jump to 30 seconds before expiry
	provider.now = func() time.Time { return time.Now().Add(time.Hour - 30*time.Second) }

	token, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "token-2" {
		t.Errorf("expected refreshed token-2, got %q", token)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("expected 2 token requests, got %d", n)
	}
}

func TestTokenProvider_Invalidate(t *testing.T) {
	server, calls := newTokenServer(t, 3600)
	provider := newTestProvider(server.URL, time.Minute)

	if _, err := provider.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	provider.Invalidate()
	token, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if token != "token-2" {
		t.Errorf("expected token-2 after invalidation, got %q", token)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("expected 2 token requests, got %d", n)
	}
}

func TestTokenProvider_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, time.Minute)
	if _, err := provider.Token(context.Background()); err == nil {
		t.Fatal("expected error from rejected credentials")
	}
}
