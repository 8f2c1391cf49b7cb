package permission

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/naveenspark/clinica/pkg/client"
	"github.com/naveenspark/clinica/pkg/domain"
)

// Wire names seen for each field, in lookup order.
var (
	idKeys      = []string{"menuId", "idMenu", "id"}
	nameKeys    = []string{"nombreMenu", "menuName", "nombre", "name"}
	routeKeys   = []string{"ruta", "route", "url", "path"}
	enabledKeys = []string{"habilitado", "enabled", "activo", "active"}
)

// Normalize converts raw rows into permissions. Rows without an id or a name
// are dropped, and only the first row per menu id is kept. A row without an
// enabled flag counts as enabled. skipped reports how many rows were dropped.
func Normalize(rows []client.RoleMenu) (perms []domain.MenuPermission, skipped int) {
	perms = make([]domain.MenuPermission, 0, len(rows))
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		fields := flatten(row)

		id, ok := intField(fields, idKeys)
		name := stringField(fields, nameKeys)
		if !ok || name == "" || seen[id] {
			skipped++
			continue
		}
		seen[id] = true

		enabled, present := boolField(fields, enabledKeys)
		perms = append(perms, domain.MenuPermission{
			MenuID:   id,
			MenuName: name,
			Route:    stringField(fields, routeKeys),
			Enabled:  enabled || !present,
		})
	}
	return perms, skipped
}

// flatten lets a nested {"menu": {...}} object supply fields the row lacks.
func flatten(row client.RoleMenu) map[string]any {
	nested, ok := row["menu"].(map[string]any)
	if !ok {
		return row
	}
	out := make(map[string]any, len(row)+len(nested))
	for k, v := range nested {
		out[k] = v
	}
	for k, v := range row {
		if k != "menu" {
			out[k] = v
		}
	}
	return out
}

func intField(m map[string]any, keys []string) (int64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int64(v), true
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, true
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func stringField(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func boolField(m map[string]any, keys []string) (value, present bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case bool:
			return v, true
		case float64:
			return v != 0, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}
