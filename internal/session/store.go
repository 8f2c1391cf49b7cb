// Package session holds the authenticated identity and its menu permissions.
//
// A Store is the only mutator of session state. It changes through
// Initialize, Login, Logout and the permission loads, and every transition
// is pushed to subscribers as an immutable Snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/clinica/internal/menu"
	"github.com/naveenspark/clinica/internal/obs"
	"github.com/naveenspark/clinica/internal/token"
	"github.com/naveenspark/clinica/pkg/client"
	"github.com/naveenspark/clinica/pkg/domain"
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, correo, password string) (*client.LoginResponse, error)
}

// PermissionSource returns the menu permissions of a role. It never fails:
// an unreachable API yields an empty set.
type PermissionSource interface {
	FetchMenusForRole(ctx context.Context, role string) []domain.MenuPermission
}

// Options configures a Store. Tokens, Auth and Permissions are required.
type Options struct {
	Tokens      TokenStore
	Auth        Authenticator
	Permissions PermissionSource
	Logger      *slog.Logger
	Metrics     *obs.Metrics
	Now         func() time.Time
	// OnToken is called with the bearer token whenever it changes, and with
	// "" on logout. It runs before subscribers are notified.
	OnToken func(token string)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State       domain.SessionState
	Claims      *domain.Claims
	Permissions []domain.MenuPermission
	Menu        []domain.MenuItem
	SessionID   string
	Generation  uint64 // increases with every transition
}

// LoggedIn reports whether the snapshot carries an identity.
func (s Snapshot) LoggedIn() bool {
	return s.State == domain.StateLoggedIn && s.Claims != nil
}

// Store is the session aggregate. It is safe for concurrent use.
type Store struct {
	tokens  TokenStore
	auth    Authenticator
	perms   PermissionSource
	log     *slog.Logger
	metrics *obs.Metrics
	now     func() time.Time
	onToken func(string)

	mu          sync.Mutex
	state       domain.SessionState
	claims      *domain.Claims
	token       string
	permissions []domain.MenuPermission
	sessionID   string
	generation  uint64
	listeners   map[int]func(Snapshot)
	nextID      int
}

// New creates a Store in the Uninitialized state.
func New(opts Options) *Store {
	s := &Store{
		tokens:    opts.Tokens,
		auth:      opts.Auth,
		perms:     opts.Permissions,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
		onToken:   opts.OnToken,
		listeners: make(map[int]func(Snapshot)),
	}
	if s.log == nil {
		s.log = obs.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Subscribe registers fn to receive a Snapshot after every transition.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the bearer token of the current session, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Initialize restores the session from the persisted token. A token that
// does not decode, or has expired, is cleared and the session stays logged out.
func (s *Store) Initialize(ctx context.Context) {
	raw, err := s.tokens.Load()
	if err != nil {
		s.log.Warn("read persisted token", "error", err.Error())
		s.setLoggedOut()
		return
	}
	if raw == "" {
		s.setLoggedOut()
		return
	}

	claims, err := token.Parse(raw, s.now())
	if err != nil {
		s.log.Info("discarding persisted token", "reason", err.Error())
		if clearErr := s.tokens.Clear(); clearErr != nil {
			s.log.Warn("clear persisted token", "error", clearErr.Error())
		}
		s.setLoggedOut()
		return
	}

	s.setLoggedIn(claims, raw)
	if err := s.LoadPermissions(ctx, claims.Role); err != nil {
		s.log.Debug("initial permission load dropped", "error", err.Error())
	}
}

// Login authenticates with the API. Rejected credentials, a reply without a
// token, or a token that does not decode yield an *AuthenticationError and
// leave the session untouched.
func (s *Store) Login(ctx context.Context, correo, password string) error {
	correo = strings.TrimSpace(correo)
	if correo == "" || password == "" {
		return &AuthenticationError{Message: "correo and password are required"}
	}

	resp, err := s.auth.Login(ctx, correo, password)
	if err != nil {
		if isCredentialRejection(err) {
			return &AuthenticationError{Message: client.Message(err), Err: err}
		}
		return fmt.Errorf("session.Login: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Token) == "" {
		msg := "no token in response"
		if resp != nil && strings.TrimSpace(resp.Message) != "" {
			msg = strings.TrimSpace(resp.Message)
		}
		return &AuthenticationError{Message: msg}
	}

	raw := strings.TrimSpace(resp.Token)
	claims, err := token.Parse(raw, s.now())
	if err != nil {
		return &AuthenticationError{Message: "server returned an unusable token", Err: err}
	}
	if err := s.tokens.Save(raw); err != nil {
		// The session still works for this process; it will not survive a restart.
		s.log.Warn("persist token", "error", err.Error())
	}

	s.setLoggedIn(claims, raw)
	if err := s.LoadPermissions(ctx, claims.Role); err != nil {
		s.log.Debug("login permission load dropped", "error", err.Error())
	}
	return nil
}

// Logout clears the persisted token, the identity and the permission set.
// It is safe to call when already logged out. The in-memory session is
// cleared even when removing the persisted token fails.
func (s *Store) Logout() error {
	err := s.tokens.Clear()
	s.setLoggedOut()
	if err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	return nil
}

// LoadPermissions fetches the permissions of role and replaces the current
// set in one assignment. A result that arrives after the session that asked
// for it has ended is dropped. Overlapping loads within one session are not
// sequenced: the last one to complete wins.
func (s *Store) LoadPermissions(ctx context.Context, role string) error {
	s.mu.Lock()
	if s.state != domain.StateLoggedIn {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	issuedFor := s.sessionID
	s.mu.Unlock()

	perms := s.perms.FetchMenusForRole(ctx, role)

	s.mu.Lock()
	if s.state != domain.StateLoggedIn || s.sessionID != issuedFor {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	s.permissions = perms
	s.generation++
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.Debug("permissions replaced", "role", role, "count", len(perms), "menu", len(snap.Menu))
	notify(listeners, snap)
	return nil
}

// RefreshPermissions re-pulls the permissions of the current role. It is a
// no-op when logged out. An expired session is logged out and
// ErrSessionExpired returned.
func (s *Store) RefreshPermissions(ctx context.Context) error {
	s.mu.Lock()
	claims := s.claims
	s.mu.Unlock()
	if claims == nil {
		return nil
	}
	if !claims.ValidAt(s.now()) {
		s.log.Info("session expired on refresh", "subject", claims.Subject)
		if err := s.Logout(); err != nil {
			s.log.Warn("logout after expiry", "error", err.Error())
		}
		return ErrSessionExpired
	}
	return s.LoadPermissions(ctx, claims.Role)
}

// CheckExpiry logs the session out if its claims have expired and reports
// whether it did.
func (s *Store) CheckExpiry() bool {
	s.mu.Lock()
	claims := s.claims
	s.mu.Unlock()
	if claims == nil || claims.ValidAt(s.now()) {
		return false
	}
	s.log.Info("session expired", "subject", claims.Subject)
	if err := s.Logout(); err != nil {
		s.log.Warn("logout after expiry", "error", err.Error())
	}
	return true
}

func (s *Store) setLoggedIn(claims domain.Claims, raw string) {
	s.mu.Lock()
	from := s.state
	s.state = domain.StateLoggedIn
	s.claims = &claims
	s.token = raw
	s.permissions = nil
	s.sessionID = uuid.NewString()
	s.generation++
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.transitioned(from, snap, raw, listeners)
}

func (s *Store) setLoggedOut() {
	s.mu.Lock()
	from := s.state
	if from == domain.StateLoggedOut {
		s.mu.Unlock()
		return
	}
	s.state = domain.StateLoggedOut
	s.claims = nil
	s.token = ""
	s.permissions = nil
	s.sessionID = ""
	s.generation++
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.transitioned(from, snap, "", listeners)
}

func (s *Store) transitioned(from domain.SessionState, snap Snapshot, raw string, listeners []func(Snapshot)) {
	role := ""
	if snap.Claims != nil {
		role = snap.Claims.Role
	}
	s.log.Info("session transition", "from", from.String(), "to", snap.State.String(), "role", role)
	s.metrics.SessionTransition(snap.State.String())
	if s.onToken != nil {
		s.onToken(raw)
	}
	notify(listeners, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state,
		SessionID:  s.sessionID,
		Generation: s.generation,
	}
	if s.claims != nil {
		c := *s.claims
		snap.Claims = &c
		snap.Permissions = append([]domain.MenuPermission(nil), s.permissions...)
		snap.Menu = menu.Resolve(s.permissions, c.Role)
	}
	return snap
}

func (s *Store) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// isCredentialRejection reports whether err is the API refusing the
// credentials, as opposed to the API being unreachable or failing.
func isCredentialRejection(err error) bool {
	var httpErr *client.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
