// Package tui renders the session as a terminal navigation surface: a login
// form while logged out, and a topbar, sidebar and content pane once the
// menu is resolved.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/clinica/internal/menu"
	"github.com/naveenspark/clinica/internal/session"
	"github.com/naveenspark/clinica/pkg/client"
	"github.com/naveenspark/clinica/pkg/domain"
)

const (
	defaultExpiryInterval = 30 * time.Second
	sidebarWidth          = 28
	rolesItemID           = "roles"
)

// Config wires the App to the session and the outside world.
type Config struct {
	Store   *session.Store
	Roles   RoleAPI // nil disables the role-menu editor
	WebURL  string
	Version string
	Open    func(url string) error
	Copy    func(text string) error
	// ExpiryInterval is how often the session expiry is checked. Zero means 30s.
	ExpiryInterval time.Duration
}

// SessionChangedMsg delivers a Store transition to the program.
type SessionChangedMsg struct {
	Snapshot session.Snapshot
}

type initializedMsg struct{}

type refreshResultMsg struct {
	err error
}

type logoutResultMsg struct {
	err error
}

type expiryCheckedMsg struct {
	expired bool
}

// actionResultMsg reports a side effect such as a clipboard copy.
type actionResultMsg struct {
	notice string
	err    error
}

// App is the root Bubbletea model.
type App struct {
	cfg       Config
	snap      session.Snapshot
	login     loginModel
	roles     rolesModel
	rolesOpen bool
	helpOpen  bool
	cursor    int
	busy      bool
	notice    string
	noticeErr bool
	width     int
	height    int
}

// NewApp creates the TUI application.
func NewApp(cfg Config) App {
	if cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = defaultExpiryInterval
	}
	return App{
		cfg:   cfg,
		login: newLoginModel(cfg.Store),
	}
}

func (a App) Init() tea.Cmd {
	s := a.cfg.Store
	return tea.Batch(func() tea.Msg {
		s.Initialize(context.Background())
		return initializedMsg{}
	}, a.expiryTick())
}

func (a App) expiryTick() tea.Cmd {
	s := a.cfg.Store
	return tea.Tick(a.cfg.ExpiryInterval, func(time.Time) tea.Msg {
		return expiryCheckedMsg{expired: s.CheckExpiry()}
	})
}

// apply adopts snap unless a newer one has already been seen.
func (a App) apply(snap session.Snapshot) App {
	if snap.Generation < a.snap.Generation {
		return a
	}
	wasLoggedIn := a.snap.LoggedIn()
	a.snap = snap
	if !snap.LoggedIn() {
		a.rolesOpen = false
		a.cursor = 0
		a.busy = false
		if wasLoggedIn {
			a.login = a.login.reset()
		}
		return a
	}
	if a.cursor >= len(snap.Menu) {
		a.cursor = max(len(snap.Menu)-1, 0)
	}
	return a
}

func (a App) setNotice(text string, isErr bool) App {
	a.notice = text
	a.noticeErr = isErr
	return a
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.login, _ = a.login.Update(msg)
		// Chrome: topbar(2) + notice(1) + help(1)
		a.roles, _ = a.roles.Update(tea.WindowSizeMsg{Width: msg.Width - sidebarWidth, Height: msg.Height - 4})
		return a, nil

	case SessionChangedMsg:
		return a.apply(msg.Snapshot), nil

	case initializedMsg:
		return a.apply(a.cfg.Store.Snapshot()), nil

	case expiryCheckedMsg:
		if msg.expired {
			a = a.apply(a.cfg.Store.Snapshot())
			a = a.setNotice("session expired, sign in again", true)
			a.login.err = a.notice
		}
		return a, a.expiryTick()

	case loginResultMsg:
		a.login, _ = a.login.Update(msg)
		if msg.err == nil {
			a = a.apply(a.cfg.Store.Snapshot())
			a = a.setNotice("", false)
		}
		return a, nil

	case refreshResultMsg:
		a.busy = false
		a = a.apply(a.cfg.Store.Snapshot())
		switch {
		case errors.Is(msg.err, session.ErrSessionExpired):
			a = a.setNotice("session expired, sign in again", true)
			a.login.err = a.notice
		case msg.err != nil:
			a = a.setNotice("refresh: "+client.Message(msg.err), true)
		default:
			a = a.setNotice(fmt.Sprintf("permissions reloaded (%d menus)", len(a.snap.Menu)), false)
		}
		return a, nil

	case logoutResultMsg:
		a = a.apply(a.cfg.Store.Snapshot())
		if msg.err != nil {
			a = a.setNotice("logout: "+msg.err.Error(), true)
			a.login.err = a.notice
		}
		return a, nil

	case actionResultMsg:
		if msg.err != nil {
			return a.setNotice(msg.err.Error(), true), nil
		}
		return a.setNotice(msg.notice, false), nil

	case rolesLoadedMsg, roleMenusLoadedMsg:
		var cmd tea.Cmd
		a.roles, cmd = a.roles.Update(msg)
		return a, cmd

	case rolesSavedMsg:
		a.roles, _ = a.roles.Update(msg)
		if msg.err != nil || !a.snap.LoggedIn() {
			return a, nil
		}
		a.busy = true
		return a, a.refresh()

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.snap.State {
	case domain.StateUninitialized:
		if msg.String() == "q" {
			return a, tea.Quit
		}
		return a, nil
	case domain.StateLoggedOut:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		switch msg.String() {
		case "h", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	if a.rolesOpen {
		var cmd tea.Cmd
		a.roles, cmd = a.roles.Update(msg)
		if a.roles.closed {
			a.rolesOpen = false
		}
		return a, cmd
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "h":
		a.helpOpen = true
	case "j", "down":
		if a.cursor < len(a.snap.Menu)-1 {
			a.cursor++
		}
	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
	case "enter":
		item, ok := a.selected()
		if ok && item.ID == rolesItemID {
			return a.openRoles()
		}
	case "r":
		if a.busy {
			return a, nil
		}
		a.busy = true
		a = a.setNotice("reloading permissions...", false)
		return a, a.refresh()
	case "y":
		if item, ok := a.selected(); ok {
			return a, a.copyRoute(item)
		}
	case "o":
		if item, ok := a.selected(); ok {
			return a, a.openRoute(item)
		}
	case "L":
		s := a.cfg.Store
		return a, func() tea.Msg {
			return logoutResultMsg{err: s.Logout()}
		}
	}
	return a, nil
}

func (a App) openRoles() (tea.Model, tea.Cmd) {
	if a.cfg.Roles == nil {
		return a.setNotice("role editor unavailable", true), nil
	}
	height := a.roles.height
	a.roles = newRolesModel(a.cfg.Roles)
	a.roles.height = height
	a.rolesOpen = true
	return a, a.roles.Init()
}

func (a App) refresh() tea.Cmd {
	s := a.cfg.Store
	return func() tea.Msg {
		return refreshResultMsg{err: s.RefreshPermissions(context.Background())}
	}
}

func (a App) copyRoute(item domain.MenuItem) tea.Cmd {
	copyFn := a.cfg.Copy
	if copyFn == nil {
		return nil
	}
	route := item.Route
	return func() tea.Msg {
		if err := copyFn(route); err != nil {
			return actionResultMsg{err: fmt.Errorf("copy: %w", err)}
		}
		return actionResultMsg{notice: "copied " + route}
	}
}

func (a App) openRoute(item domain.MenuItem) tea.Cmd {
	openFn := a.cfg.Open
	if openFn == nil {
		return nil
	}
	url := a.routeURL(item)
	return func() tea.Msg {
		if err := openFn(url); err != nil {
			return actionResultMsg{err: fmt.Errorf("open: %w", err)}
		}
		return actionResultMsg{notice: "opened " + url}
	}
}

// routeURL joins the web base URL and the item's route.
func (a App) routeURL(item domain.MenuItem) string {
	base := strings.TrimRight(a.cfg.WebURL, "/")
	route := item.Route
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return base + route
}

func (a App) selected() (domain.MenuItem, bool) {
	if a.cursor < 0 || a.cursor >= len(a.snap.Menu) {
		return domain.MenuItem{}, false
	}
	return a.snap.Menu[a.cursor], true
}

func (a App) View() string {
	switch a.snap.State {
	case domain.StateUninitialized:
		return "\n  " + dimStyle.Render("restoring session...") + "\n"
	case domain.StateLoggedOut:
		return a.login.View()
	}
	if a.helpOpen {
		return helpView(a.cfg.Version)
	}

	var b strings.Builder
	b.WriteString(a.renderTopbar())
	b.WriteString("\n")

	bodyHeight := a.height - 4
	sidebar := sidebarStyle.Width(sidebarWidth).Render(a.renderSidebar())
	var content string
	if a.rolesOpen {
		content = a.roles.View()
	} else {
		content = a.renderContent()
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " "+strings.ReplaceAll(content, "\n", "\n "))
	b.WriteString(truncateToHeight(body, bodyHeight))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	if a.notice != "" {
		style := dimStyle
		if a.noticeErr {
			style = errorStyle
		}
		b.WriteString(" " + style.Render(a.notice) + "\n")
	} else {
		b.WriteString("\n")
	}
	if a.rolesOpen {
		b.WriteString(helpBar("←/→", "role", "j/k", "move", "space", "toggle", "ctrl+s", "save", "esc", "close"))
	} else {
		b.WriteString(helpBar("j/k", "move", "enter", "open", "r", "refresh", "y", "copy", "o", "browser", "L", "logout", "h", "help", "q", "quit"))
	}
	return b.String()
}

func (a App) renderTopbar() string {
	c := a.snap.Claims
	name := c.DisplayName
	if name == "" {
		name = c.Email
	}
	if name == "" {
		name = c.Subject
	}
	role, ok := menu.CanonicalRole(c.Role)
	if !ok {
		role = c.Role
	}
	parts := []string{titleStyle.Render("CLINICA"), selectedStyle.Render(name)}
	if c.Email != "" && c.Email != name {
		parts = append(parts, dimStyle.Render(c.Email))
	}
	if role != "" {
		parts = append(parts, RoleStyle(role).Render(role))
	}
	line := " " + strings.Join(parts, metaStyle.Render("  ·  "))
	if a.busy {
		line += "  " + dimStyle.Render("…")
	}
	return line + "\n"
}

func (a App) renderSidebar() string {
	if len(a.snap.Menu) == 0 {
		return dimStyle.Render("no menus")
	}
	lines := make([]string, 0, len(a.snap.Menu))
	for i, item := range a.snap.Menu {
		label := truncStr(item.Label, sidebarWidth-5)
		line := IconGlyph(item.IconRef) + " " + label
		if i == a.cursor {
			lines = append(lines, selectedRowBg.Render(accentStyle.Render("▸ ")+selectedStyle.Render(padRight(line, sidebarWidth-3))))
		} else {
			lines = append(lines, "  "+normalStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (a App) renderContent() string {
	item, ok := a.selected()
	if !ok {
		return dimStyle.Render("nothing to show")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", IconGlyph(item.IconRef), titleStyle.Render(item.Label))
	fmt.Fprintf(&b, "%s %s\n", metaStyle.Render(padRight("route", 8)), normalStyle.Render(item.Route))
	fmt.Fprintf(&b, "%s %s\n", metaStyle.Render(padRight("link", 8)), accentStyle.Render(a.routeURL(item)))
	if item.OriginalMenuID != 0 {
		fmt.Fprintf(&b, "%s %s\n", metaStyle.Render(padRight("menu", 8)), dimStyle.Render(fmt.Sprintf("#%d", item.OriginalMenuID)))
	} else {
		fmt.Fprintf(&b, "%s %s\n", metaStyle.Render(padRight("source", 8)), dimStyle.Render("default menu for role"))
	}
	if item.ID == rolesItemID {
		fmt.Fprintf(&b, "\n%s\n", dimStyle.Render("enter to edit role menus"))
	}
	return b.String()
}
