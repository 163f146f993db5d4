package mercadopago

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/ports/adapter"
)

var _ adapter.TokenSource = (*TokenCache)(nil)

// Tokens are valid for 6h; renew one hour early so in-flight requests
// never carry an expiring token.
const tokenLifetime = 5 * time.Hour

// TokenCache exchanges client credentials for an access token and
// caches it until near expiry. Refresh is single-flight: the mutex
// covers both the check and the renewal.
type TokenCache struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenCache(clientID, clientSecret, baseURL string) *TokenCache {
	return &TokenCache{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TokenCache) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires) {
		return t.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", domain.ErrAuth, resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w, body: %s", err, string(body))
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned empty access_token", domain.ErrAuth)
	}

	t.token = payload.AccessToken
	t.expires = time.Now().Add(tokenLifetime)
	return t.token, nil
}
