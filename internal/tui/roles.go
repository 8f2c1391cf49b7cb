package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clinica/internal/permission"
	"github.com/naveenspark/clinica/pkg/client"
	"github.com/naveenspark/clinica/pkg/domain"
)

// RoleAPI is the part of the API client the role-menu editor needs.
type RoleAPI interface {
	ListRoles(ctx context.Context) ([]domain.Role, error)
	RoleMenus(ctx context.Context, roleID string) ([]client.RoleMenu, error)
	UpdateRoleMenus(ctx context.Context, roleID string, menus []client.RoleMenuUpdate) error
}

type rolesLoadedMsg struct {
	roles []domain.Role
	err   error
}

type roleMenusLoadedMsg struct {
	roleID  string
	rows    []domain.MenuPermission
	skipped int
	err     error
}

// rolesSavedMsg is handled by the App, which refreshes the session's
// permissions after a successful save.
type rolesSavedMsg struct {
	roleID string
	err    error
}

// rolesModel edits which menus each role may see.
type rolesModel struct {
	api     RoleAPI
	roles   []domain.Role
	roleIdx int
	rows    []domain.MenuPermission
	cursor  int
	dirty   bool
	loading bool
	saving  bool
	status  string
	err     string
	closed  bool
	height  int
}

func newRolesModel(api RoleAPI) rolesModel {
	return rolesModel{api: api, loading: true}
}

func (m rolesModel) Init() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		roles, err := api.ListRoles(context.Background())
		return rolesLoadedMsg{roles: roles, err: err}
	}
}

func (m rolesModel) currentRoleID() string {
	if m.roleIdx < 0 || m.roleIdx >= len(m.roles) {
		return ""
	}
	return strconv.FormatInt(m.roles[m.roleIdx].ID, 10)
}

func (m rolesModel) loadMenus() tea.Cmd {
	api, roleID := m.api, m.currentRoleID()
	if roleID == "" {
		return nil
	}
	return func() tea.Msg {
		raw, err := api.RoleMenus(context.Background(), roleID)
		if err != nil {
			return roleMenusLoadedMsg{roleID: roleID, err: err}
		}
		rows, skipped := permission.Normalize(raw)
		return roleMenusLoadedMsg{roleID: roleID, rows: rows, skipped: skipped}
	}
}

func (m rolesModel) save() tea.Cmd {
	api, roleID := m.api, m.currentRoleID()
	updates := make([]client.RoleMenuUpdate, 0, len(m.rows))
	for _, r := range m.rows {
		updates = append(updates, client.RoleMenuUpdate{MenuID: r.MenuID, Enabled: r.Enabled})
	}
	return func() tea.Msg {
		err := api.UpdateRoleMenus(context.Background(), roleID, updates)
		return rolesSavedMsg{roleID: roleID, err: err}
	}
}

func (m rolesModel) Update(msg tea.Msg) (rolesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case rolesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = "load roles: " + client.Message(msg.err)
			return m, nil
		}
		m.roles = msg.roles
		m.roleIdx = 0
		if len(m.roles) == 0 {
			m.status = "no roles defined"
			return m, nil
		}
		m.loading = true
		return m, m.loadMenus()

	case roleMenusLoadedMsg:
		if msg.roleID != m.currentRoleID() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = "load menus: " + client.Message(msg.err)
			m.rows = nil
			return m, nil
		}
		m.err = ""
		m.rows = msg.rows
		m.cursor = 0
		m.dirty = false
		m.status = ""
		if msg.skipped > 0 {
			m.status = fmt.Sprintf("%d unreadable rows ignored", msg.skipped)
		}

	case rolesSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.err = "save: " + client.Message(msg.err)
			return m, nil
		}
		m.err = ""
		m.dirty = false
		m.status = "saved"

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m rolesModel) handleKey(msg tea.KeyMsg) (rolesModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closed = true
		return m, nil
	}
	if m.saving {
		return m, nil
	}
	switch msg.String() {
	case "left", "right":
		if len(m.roles) < 2 {
			return m, nil
		}
		if msg.String() == "left" {
			m.roleIdx = (m.roleIdx - 1 + len(m.roles)) % len(m.roles)
		} else {
			m.roleIdx = (m.roleIdx + 1) % len(m.roles)
		}
		m.rows = nil
		m.cursor = 0
		m.dirty = false
		m.err = ""
		m.status = ""
		m.loading = true
		return m, m.loadMenus()
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case " ", "space":
		if m.cursor < len(m.rows) {
			m.rows[m.cursor].Enabled = !m.rows[m.cursor].Enabled
			m.dirty = true
			m.status = ""
		}
	case "ctrl+s":
		if !m.dirty || m.currentRoleID() == "" {
			return m, nil
		}
		m.saving = true
		m.status = "saving..."
		return m, m.save()
	}
	return m, nil
}

func (m rolesModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Roles") + "\n\n")

	if len(m.roles) > 0 {
		names := make([]string, len(m.roles))
		for i, r := range m.roles {
			if i == m.roleIdx {
				names[i] = selectedStyle.Render("[" + r.Name + "]")
			} else {
				names[i] = dimStyle.Render(r.Name)
			}
		}
		b.WriteString("← " + strings.Join(names, " ") + " →\n\n")
	}

	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("loading...") + "\n")
	case len(m.rows) == 0 && m.err == "" && len(m.roles) > 0:
		b.WriteString(dimStyle.Render("this role has no menus") + "\n")
	}

	for i, r := range m.rows {
		check := "[ ]"
		if r.Enabled {
			check = okStyle.Render("[x]")
		}
		label := normalStyle.Render(r.MenuName)
		prefix := "  "
		if i == m.cursor {
			label = selectedStyle.Render(r.MenuName)
			prefix = accentStyle.Render("▸ ")
		}
		route := ""
		if r.Route != "" {
			route = " " + metaStyle.Render(r.Route)
		}
		fmt.Fprintf(&b, "%s%s %s%s\n", prefix, check, label, route)
	}

	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n")
	} else if m.status != "" {
		b.WriteString(dimStyle.Render(m.status) + "\n")
	} else if m.dirty {
		b.WriteString(accentStyle.Render("unsaved changes") + "\n")
	}
	return truncateToHeight(b.String(), m.height)
}
