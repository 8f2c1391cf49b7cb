// Package permission fetches the menu permissions of a role from the API.
package permission

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/naveenspark/clinica/internal/obs"
	"github.com/naveenspark/clinica/pkg/client"
	"github.com/naveenspark/clinica/pkg/domain"
)

// Source is the slice of the API client the fetcher needs.
type Source interface {
	RoleMenus(ctx context.Context, roleID string) ([]client.RoleMenu, error)
}

// FetchError records a failed fetch. It is logged, never returned.
type FetchError struct {
	Role string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch menus for role %q: %v", e.Role, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves role menus. It does not cache.
type Fetcher struct {
	src     Source
	log     *slog.Logger
	metrics *obs.Metrics
}

// NewFetcher creates a Fetcher. log and metrics may be nil.
func NewFetcher(src Source, log *slog.Logger, metrics *obs.Metrics) *Fetcher {
	if log == nil {
		log = obs.Discard()
	}
	return &Fetcher{src: src, log: log, metrics: metrics}
}

// FetchMenusForRole returns the menu permissions of role. Failures degrade to
// an empty, non-nil slice so navigation can fall back to the static menu.
func (f *Fetcher) FetchMenusForRole(ctx context.Context, role string) []domain.MenuPermission {
	role = strings.TrimSpace(role)
	if role == "" {
		return []domain.MenuPermission{}
	}
	rows, err := f.src.RoleMenus(ctx, role)
	if err != nil {
		f.metrics.PermissionFetch(false)
		f.log.Warn("permission fetch failed", "role", role, "error", (&FetchError{Role: role, Err: err}).Error())
		return []domain.MenuPermission{}
	}
	f.metrics.PermissionFetch(true)

	perms, skipped := Normalize(rows)
	if skipped > 0 {
		f.log.Debug("skipped menu rows", "role", role, "count", skipped)
	}
	f.log.Debug("permissions fetched", "role", role, "count", len(perms))
	return perms
}
