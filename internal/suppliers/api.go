package suppliers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"luxemarket_api/metrics"
	"luxemarket_api/pkg/logger"
)

// APIClient executes supplier API calls with the behavior both concrete
// clients share: request pacing, exponential retry honoring Retry-After,
// one re-login on 401 and the {code,message,data} envelope decode. The
// clients differ only in credentials, endpoints, wire shapes and how the
// access token travels, which SetAuth captures.
type APIClient struct {
	Provider   string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Tokens     *TokenManager
	Backoff    Backoff
	Timeout    time.Duration
	SetAuth    func(req *http.Request, token string)
	Log        logger.Logger
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *APIClient) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}, authed bool) error {
	var lastErr error
	reloggedIn := false

	for attempt := 0; attempt < a.Backoff.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := a.Backoff.Delay(attempt - 1)
			var httpErr *HTTPStatusError
			if errors.As(lastErr, &httpErr) && httpErr.RetryAfter > 0 {
				delay = httpErr.RetryAfter
			}
			if err := SleepWithContext(ctx, delay); err != nil {
				return err
			}
		}

		err := a.doOnce(ctx, method, path, query, body, out, authed)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNotFound) || IsAuthError(err) {
			return err
		}

		var httpErr *HTTPStatusError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusUnauthorized {
				if !authed || reloggedIn {
					return &AuthError{Provider: a.Provider, Err: err}
				}
				// token invalidated in doOnce; one re-login, one more try
				reloggedIn = true
				a.Log.Log("Access token rejected, re-authenticating")
				continue
			}
			if IsRetryableStatus(err) {
				a.Log.Log("Retryable supplier response (%d), attempt %d/%d", httpErr.StatusCode, attempt+1, a.Backoff.MaxAttempts)
				continue
			}
			return &ClientError{Provider: a.Provider, StatusCode: httpErr.StatusCode, Message: httpErr.Body}
		}

		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			return err
		}

		a.Log.Log("Supplier call failed, attempt %d/%d: %v", attempt+1, a.Backoff.MaxAttempts, err)
	}

	return &TransientError{Provider: a.Provider, Err: lastErr}
}

func (a *APIClient) doOnce(ctx context.Context, method, path string, query url.Values, body, out interface{}, authed bool) error {
	if err := a.Limiter.Wait(ctx); err != nil {
		return err
	}

	var token string
	if authed {
		t, err := a.Tokens.AccessToken(ctx)
		if err != nil {
			return &AuthError{Provider: a.Provider, Err: err}
		}
		token = t
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	endpoint := a.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		a.SetAuth(req, token)
	}

	metrics.SupplierCallStarted(a.Provider)
	resp, err := a.HTTPClient.Do(req)
	metrics.SupplierCallFinished(a.Provider)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized && authed {
		a.Tokens.Invalidate(token)
	}
	if resp.StatusCode != http.StatusOK {
		return NewHTTPStatusError(resp, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	if env.Code != http.StatusOK {
		return &ClientError{Provider: a.Provider, StatusCode: env.Code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
