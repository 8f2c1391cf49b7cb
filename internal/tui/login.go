package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clinica/internal/session"
	"github.com/naveenspark/clinica/pkg/client"
)

type loginField int

const (
	fieldCorreo loginField = iota
	fieldPassword
)

// loginResultMsg carries the outcome of Store.Login.
type loginResultMsg struct {
	err error
}

// loginModel is the sign-in form shown while logged out.
type loginModel struct {
	store      *session.Store
	correo     string
	password   string
	focus      loginField
	submitting bool
	err        string
	width      int
}

func newLoginModel(s *session.Store) loginModel {
	return loginModel{store: s}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case loginResultMsg:
		m.submitting = false
		m.password = ""
		if msg.err != nil {
			m.err = loginErrorText(msg.err)
			m.focus = fieldPassword
			return m, nil
		}
		m.err = ""

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			if m.focus == fieldCorreo {
				m.focus = fieldPassword
			} else {
				m.focus = fieldCorreo
			}
			return m, nil
		case "enter":
			if m.focus == fieldCorreo && m.password == "" {
				m.focus = fieldPassword
				return m, nil
			}
			return m.submit()
		}
		m.edit(msg)
	}
	return m, nil
}

func (m *loginModel) edit(msg tea.KeyMsg) {
	field := &m.correo
	if m.focus == fieldPassword {
		field = &m.password
	}
	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			*field = editRune(*field, string(r))
		}
		return
	}
	*field = editRune(*field, msg.String())
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	if strings.TrimSpace(m.correo) == "" || m.password == "" {
		m.err = "enter your correo and password"
		return m, nil
	}
	m.submitting = true
	m.err = ""
	s, correo, password := m.store, m.correo, m.password
	return m, func() tea.Msg {
		return loginResultMsg{err: s.Login(context.Background(), correo, password)}
	}
}

// reset clears the form, keeping the correo for the next attempt.
func (m loginModel) reset() loginModel {
	m.password = ""
	m.submitting = false
	m.focus = fieldCorreo
	if m.correo != "" {
		m.focus = fieldPassword
	}
	return m
}

func (m loginModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", titleStyle.Render("C L I N I C A"))
	fmt.Fprintf(&b, "  %s\n\n", dimStyle.Render("Sign in to continue"))

	b.WriteString(m.fieldLine("correo", m.correo, "name@clinic.org", m.focus == fieldCorreo))
	b.WriteString(m.fieldLine("password", mask(m.password), "", m.focus == fieldPassword))
	b.WriteString("\n")

	switch {
	case m.submitting:
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render("signing in..."))
	case m.err != "":
		fmt.Fprintf(&b, "  %s\n", errorStyle.Render(m.err))
	default:
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpBar("tab", "switch field", "enter", "sign in", "ctrl+c", "quit"))
	return b.String()
}

func (m loginModel) fieldLine(label, value, placeholder string, focused bool) string {
	prompt := dimStyle.Render("  ")
	if focused {
		prompt = inputPromptStyle.Render("> ")
	}
	shown := normalStyle.Render(value)
	if value == "" && placeholder != "" {
		shown = inputPlaceholderStyle.Render(placeholder)
	}
	if focused {
		shown += accentStyle.Render("_")
	}
	return fmt.Sprintf("  %s%s %s\n", prompt, metaStyle.Render(padRight(label, 9)), shown)
}

// loginErrorText returns the message to show for a failed sign-in.
func loginErrorText(err error) string {
	var authErr *session.AuthenticationError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	if msg := client.Message(err); msg != "" {
		return "could not reach the server: " + msg
	}
	return client.GenericMessage
}
