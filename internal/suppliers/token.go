package suppliers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSafetyMargin is how long before the reported expiry a token is
// already considered stale.
const TokenSafetyMargin = time.Hour

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type LoginFunc func(ctx context.Context) (*Token, error)

// TokenManager caches a supplier access token and coalesces concurrent
// logins: with K callers racing on a stale token exactly one login request
// reaches the supplier, the rest wait on its result.
type TokenManager struct {
	mu      sync.Mutex
	group   singleflight.Group
	login   LoginFunc
	current *Token
	margin  time.Duration
	now     func() time.Time
}

func NewTokenManager(login LoginFunc) *TokenManager {
	return &TokenManager{
		login:  login,
		margin: TokenSafetyMargin,
		now:    time.Now,
	}
}

func (tm *TokenManager) fresh() string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current == nil {
		return ""
	}
	// stale at the boundary too: now == expiry - margin means re-login
	if !tm.now().Before(tm.current.ExpiresAt.Add(-tm.margin)) {
		return ""
	}
	return tm.current.AccessToken
}

// AccessToken returns a fresh token, logging in if the cached one is absent
// or stale.
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	if tok := tm.fresh(); tok != "" {
		return tok, nil
	}

	v, err, _ := tm.group.Do("login", func() (interface{}, error) {
		// A racing caller may have refreshed while we waited for the flight.
		if tok := tm.fresh(); tok != "" {
			return tok, nil
		}
		tok, err := tm.login(ctx)
		if err != nil {
			return nil, err
		}
		tm.mu.Lock()
		tm.current = tok
		tm.mu.Unlock()
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token if it is still the one the caller saw
// fail. A token refreshed in the meantime survives.
func (tm *TokenManager) Invalidate(accessToken string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.current != nil && tm.current.AccessToken == accessToken {
		tm.current = nil
	}
}
