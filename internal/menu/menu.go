// Package menu turns role permissions into the navigation menu.
package menu

import (
	"sort"
	"strings"

	"github.com/naveenspark/clinica/pkg/domain"
)

// Canonical role names used by the fallback tables.
const (
	RoleAdministrator = "administrator"
	RoleDoctor        = "doctor"
	RolePatient       = "patient"
	RoleSecretary     = "secretary"
)

// DefaultIcon is used for labels missing from the icon table.
const DefaultIcon = "settings"

// roleAliases maps API role ids and names to canonical roles.
var roleAliases = map[string]string{
	"1":             RoleAdministrator,
	"admin":         RoleAdministrator,
	"administrador": RoleAdministrator,
	"administrator": RoleAdministrator,
	"2":             RoleDoctor,
	"doctor":        RoleDoctor,
	"medico":        RoleDoctor,
	"médico":        RoleDoctor,
	"3":             RolePatient,
	"paciente":      RolePatient,
	"patient":       RolePatient,
	"4":             RoleSecretary,
	"secretaria":    RoleSecretary,
	"secretary":     RoleSecretary,
	"recepcionista": RoleSecretary,
}

// fallbackMenus are rendered in table order, never sorted.
var fallbackMenus = map[string][]string{
	RoleAdministrator: {"Dashboard", "Usuarios", "Roles", "Doctores", "Pacientes", "Citas", "Especializaciones", "Historial Médico"},
	RoleDoctor:        {"Dashboard", "Citas", "Mis Pacientes", "Historial Médico", "Notificaciones"},
	RolePatient:       {"Dashboard", "Mis Citas", "Historial Médico", "Notificaciones"},
	RoleSecretary:     {"Dashboard", "Citas", "Pacientes", "Doctores", "Notificaciones"},
}

var unknownRoleMenu = []string{"Dashboard"}

// icons is keyed by lower-cased label.
var icons = map[string]string{
	"dashboard":         "dashboard",
	"inicio":            "dashboard",
	"usuarios":          "users",
	"roles":             "shield",
	"permisos":          "shield",
	"doctores":          "stethoscope",
	"pacientes":         "user",
	"mis pacientes":     "user",
	"citas":             "calendar",
	"mis citas":         "calendar",
	"especializaciones": "book",
	"historial médico":  "file-medical",
	"historial medico":  "file-medical",
	"notificaciones":    "bell",
	"reportes":          "chart",
	"perfil":            "user",
}

// CanonicalRole resolves an API role id or name. ok is false for unknown roles.
func CanonicalRole(role string) (string, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(role))]
	return r, ok
}

// Slug lower-cases label and joins its words with single hyphens.
func Slug(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "-")
}

// Icon returns the icon symbol for label, or DefaultIcon.
func Icon(label string) string {
	if icon, ok := icons[strings.ToLower(strings.TrimSpace(label))]; ok {
		return icon
	}
	return DefaultIcon
}

// Resolve builds the menu. With permissions, only enabled entries are kept,
// sorted by label. Without any, the static menu of role is returned.
func Resolve(perms []domain.MenuPermission, role string) []domain.MenuItem {
	if len(perms) == 0 {
		return Fallback(role)
	}

	items := make([]domain.MenuItem, 0, len(perms))
	for _, p := range perms {
		if !p.Enabled {
			continue
		}
		item := newItem(p.MenuName, p.Route)
		item.OriginalMenuID = p.MenuID
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Label != items[j].Label {
			return items[i].Label < items[j].Label
		}
		return items[i].OriginalMenuID < items[j].OriginalMenuID
	})
	return items
}

// Fallback returns the static menu for role. Unknown roles get a lone Dashboard.
func Fallback(role string) []domain.MenuItem {
	labels := unknownRoleMenu
	if r, ok := CanonicalRole(role); ok {
		labels = fallbackMenus[r]
	}
	items := make([]domain.MenuItem, 0, len(labels))
	for _, label := range labels {
		items = append(items, newItem(label, ""))
	}
	return items
}

func newItem(label, route string) domain.MenuItem {
	slug := Slug(label)
	if route == "" {
		route = "/" + slug
	}
	return domain.MenuItem{
		ID:      slug,
		Label:   label,
		IconRef: Icon(label),
		Route:   route,
	}
}
