// Package token decodes the bearer tokens issued by the clinic API.
//
// Only the payload segment is consumed. Signatures are not verified here:
// the API that issued the token is the trust boundary.
package token

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/naveenspark/clinica/pkg/domain"
)

// Claim URIs used by ASP.NET-style identity tokens.
const (
	claimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimName           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	claimEmail          = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	claimRole           = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

// accessor extracts one logical claim from a decoded payload.
type accessor func(jwt.MapClaims) (string, bool)

func key(name string) accessor {
	return func(m jwt.MapClaims) (string, bool) {
		return stringValue(m[name])
	}
}

// Alias tables, tried in order. Adding an alias is a one-line change.
var (
	subjectAliases = []accessor{key("sub"), key("nameid"), key(claimNameIdentifier), key("id"), key("idUsuario")}
	nameAliases    = []accessor{key("name"), key("unique_name"), key(claimName), key("nombre")}
	emailAliases   = []accessor{key("email"), key(claimEmail), key("correo")}
	roleAliases    = []accessor{key("role"), key(claimRole), key("rol"), key("idRol")}
)

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Reasons reported by DecodeError.
const (
	ReasonEmpty      = "empty token"
	ReasonMalformed  = "malformed token"
	ReasonInvalidExp = "invalid exp"
	ReasonExpired    = "token expired"
)

// DecodeError describes why a token could not be turned into claims.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "token: " + e.Reason
	}
	return fmt.Sprintf("token: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode returns the claims of raw, or false when raw is malformed or expired.
func Decode(raw string) (domain.Claims, bool) {
	return DecodeAt(raw, time.Now())
}

// DecodeAt is Decode with an explicit clock.
func DecodeAt(raw string, now time.Time) (domain.Claims, bool) {
	c, err := Parse(raw, now)
	return c, err == nil
}

// Parse decodes raw and checks its expiry against now. Any failure is a *DecodeError.
func Parse(raw string, now time.Time) (domain.Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return domain.Claims{}, &DecodeError{Reason: ReasonEmpty}
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return domain.Claims{}, &DecodeError{Reason: ReasonMalformed, Err: jwt.ErrTokenMalformed}
	}
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return domain.Claims{}, &DecodeError{Reason: ReasonMalformed, Err: err}
	}
	var mc jwt.MapClaims
	if err := json.Unmarshal(payload, &mc); err != nil {
		return domain.Claims{}, &DecodeError{Reason: ReasonMalformed, Err: err}
	}
	// A payload of JSON null decodes without error but carries no object.
	if mc == nil {
		return domain.Claims{}, &DecodeError{Reason: ReasonMalformed}
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return domain.Claims{}, &DecodeError{Reason: ReasonInvalidExp, Err: err}
	}
	if exp != nil && !exp.After(now) {
		return domain.Claims{}, &DecodeError{Reason: ReasonExpired}
	}

	claims := domain.Claims{
		Subject:     first(mc, subjectAliases),
		DisplayName: first(mc, nameAliases),
		Email:       first(mc, emailAliases),
		Role:        first(mc, roleAliases),
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func first(m jwt.MapClaims, aliases []accessor) string {
	for _, get := range aliases {
		if v, ok := get(m); ok {
			return v
		}
	}
	return ""
}

// stringValue renders a JSON claim value as a string. Empty strings count as absent.
func stringValue(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case []any:
		for _, item := range v {
			if s, ok := stringValue(item); ok {
				return s, true
			}
		}
	}
	return "", false
}
