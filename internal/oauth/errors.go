package oauth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRefreshToken is recoverable: the manager falls back to
	// requesting a brand new token.
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired")

	// ErrAccountNotAuthorized means the application credentials themselves
	// are misconfigured. Retrying with the same credentials is pointless.
	ErrAccountNotAuthorized = errors.New("account is not authorised to access the authorization server")

	// ErrServiceUnavailable is fatal for this attempt; the whole run may be
	// retried later.
	ErrServiceUnavailable = errors.New("authorization service temporarily unavailable")

	// ErrEmptyStore signals that no token has ever been persisted, which
	// forces a new-token request instead of a refresh.
	ErrEmptyStore = errors.New("token store is empty")
)

// classifyAuthError maps an authorization server failure response onto the
// error taxonomy. The server reports failures as text bodies, so matching is
// on known substrings.
func classifyAuthError(status int, body string) error {
	switch {
	case strings.Contains(body, "expired refresh token"),
		strings.Contains(body, "invalid_request: Invalid refresh_token"):
		return fmt.Errorf("%w: %s", ErrInvalidRefreshToken, body)
	case strings.Contains(body, "service temporarily unavailable"):
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, body)
	case strings.Contains(body, "Account not authorised"):
		return fmt.Errorf("%w: %s", ErrAccountNotAuthorized, body)
	default:
		return fmt.Errorf("token request failed with status %d: %s", status, body)
	}
}
