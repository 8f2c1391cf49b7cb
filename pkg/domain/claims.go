package domain

import "time"

// Claims is the identity carried by a decoded bearer token.
type Claims struct {
	Subject     string    `json:"subject"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"` // zero when the token carries no exp
}

// ValidAt reports whether the claims are usable at now.
// Claims without an expiry never expire.
func (c Claims) ValidAt(now time.Time) bool {
	return c.ExpiresAt.IsZero() || c.ExpiresAt.After(now)
}
