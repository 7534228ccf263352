package suppliers

import (
	"errors"
	"fmt"
)

// ErrNotFound signals the supplier has no product for the requested id.
var ErrNotFound = errors.New("supplier: product not found")

// AuthError means login or token refresh failed permanently. The import
// worker treats it as fatal for the whole job.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ClientError is a non-retryable supplier rejection (4xx other than 401/429,
// or an error envelope code).
type ClientError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request rejected (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: request rejected: %s", e.Provider, e.Message)
}

// TransientError wraps network failures and 5xx/429 responses that survived
// every retry attempt.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
