package domain

// SessionState is the lifecycle state of the authenticated session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoggedOut
	StateLoggedIn
)

func (s SessionState) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "uninitialized"
	}
}
