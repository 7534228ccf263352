package suppliers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_CoalescesConcurrentLogins(t *testing.T) {
	var logins atomic.Int32
	tm := NewTokenManager(func(ctx context.Context) (*Token, error) {
		logins.Add(1)
		time.Sleep(20 * time.Millisecond) // force overlap
		return &Token{AccessToken: "tok-1", ExpiresAt: time.Now().Add(4 * time.Hour)}, nil
	})

	const callers = 25
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := tm.AccessToken(context.Background())
			require.NoError(t, err)
			results[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), logins.Load(), "concurrent callers must share one login")
	for _, tok := range results {
		assert.Equal(t, "tok-1", tok)
	}
}

func TestTokenManager_CachedTokenSkipsLogin(t *testing.T) {
	var logins atomic.Int32
	tm := NewTokenManager(func(ctx context.Context) (*Token, error) {
		logins.Add(1)
		return &Token{AccessToken: "tok-1", ExpiresAt: time.Now().Add(4 * time.Hour)}, nil
	})

	for i := 0; i < 5; i++ {
		tok, err := tm.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, int32(1), logins.Load())
}

func TestTokenManager_StaleWithinSafetyMargin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var logins atomic.Int32
	tm := NewTokenManager(func(ctx context.Context) (*Token, error) {
		n := logins.Add(1)
		// token valid for 90 minutes, so only 30 minutes of usable life
		// remain after the one-hour safety margin
		tok := "tok-1"
		if n > 1 {
			tok = "tok-2"
		}
		return &Token{AccessToken: tok, ExpiresAt: now.Add(90 * time.Minute)}, nil
	})
	tm.now = func() time.Time { return now }

	tok, err := tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// 31 minutes later the token is inside the safety margin: re-login
	now = now.Add(31 * time.Minute)
	tok, err = tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), logins.Load())
}

func TestTokenManager_StaleAtExactMarginBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(90 * time.Minute)
	var logins atomic.Int32
	tm := NewTokenManager(func(ctx context.Context) (*Token, error) {
		n := logins.Add(1)
		tok := "tok-1"
		if n > 1 {
			tok = "tok-2"
		}
		return &Token{AccessToken: tok, ExpiresAt: expiresAt}, nil
	})
	tm.now = func() time.Time { return now }

	tok, err := tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// exactly expiry minus the safety margin: already stale
	now = expiresAt.Add(-TokenSafetyMargin)
	tok, err = tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), logins.Load())
}

func TestTokenManager_LoginErrorPropagates(t *testing.T) {
	loginErr := errors.New("bad credentials")
	tm := NewTokenManager(func(ctx context.Context) (*Token, error) {
		return nil, loginErr
	})

	_, err := tm.AccessToken(context.Background())
	assert.ErrorIs(t, err, loginErr)
}

func TestTokenManager_InvalidateOnlyMatchingToken(t *testing.T) {
	var logins atomic.Int32
	tm := NewTokenManager(func(ctx context.Context) (*Token, error) {
		logins.Add(1)
		return &Token{AccessToken: "tok-1", ExpiresAt: time.Now().Add(4 * time.Hour)}, nil
	})

	tok, err := tm.AccessToken(context.Background())
	require.NoError(t, err)

	// invalidating a token nobody holds anymore is a no-op
	tm.Invalidate("some-older-token")
	_, err = tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), logins.Load())

	// invalidating the live token forces a re-login
	tm.Invalidate(tok)
	_, err = tm.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}
