package session

import "errors"

var (
	// ErrNotLoggedIn is returned by operations that need a current session.
	ErrNotLoggedIn = errors.New("session: not logged in")
	// ErrSessionExpired is returned when the current claims have expired.
	// The session has already been logged out when it is returned.
	ErrSessionExpired = errors.New("session: expired")
)

// AuthenticationError reports rejected credentials. Message is safe to show.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
