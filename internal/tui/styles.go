package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Base styles
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38bdf8"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38bdf8")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#34d474"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#38bdf8")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Sidebar
	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("#1e1e2a")).
			PaddingRight(1)

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	// Role badge colors, keyed by canonical role
	roleColors = map[string]lipgloss.Color{
		"administrator": lipgloss.Color("#f0944a"),
		"doctor":        lipgloss.Color("#34d474"),
		"patient":       lipgloss.Color("#60a0e0"),
		"secretary":     lipgloss.Color("#c084e0"),
	}
)

// iconGlyphs maps menu icon symbols to terminal glyphs.
var iconGlyphs = map[string]string{
	"dashboard":    "◧",
	"users":        "☷",
	"shield":       "⛨",
	"stethoscope":  "⚕",
	"user":         "☺",
	"calendar":     "▦",
	"book":         "☰",
	"file-medical": "✚",
	"bell":         "♪",
	"chart":        "▤",
	"settings":     "⚙",
}

// IconGlyph returns the glyph for an icon symbol. Unknown symbols render as the settings gear.
func IconGlyph(icon string) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return iconGlyphs["settings"]
}

// RoleStyle returns a bold style colored for a canonical role.
func RoleStyle(role string) lipgloss.Style {
	if c, ok := roleColors[role]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries given as key, label pairs.
func helpBar(pairs ...string) string {
	entries := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, helpEntry(pairs[i], pairs[i+1]))
	}
	return " " + strings.Join(entries, "  ")
}

// helpView renders the keyboard reference overlay.
func helpView(version string) string {
	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	keys := []struct{ key, desc string }{
		{"j / k", "Move through the menu"},
		{"enter", "Open the selected screen"},
		{"r", "Reload permissions for your role"},
		{"y", "Copy the selected route"},
		{"o", "Open the selected route in the browser"},
		{"L", "Log out"},
		{"h / esc", "Close this help"},
		{"q", "Quit"},
	}
	commands := []struct{ cmd, desc string }{
		{"clinica", "Open the terminal client"},
		{"clinica whoami", "Show the identity of the saved session"},
		{"clinica menu", "Print the menu of the saved session"},
		{"clinica logout", "Clear the saved session"},
		{"clinica --version", "Show version"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n\n", titleStyle.Render("C L I N I C A"), metaStyle.Render(version))
	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", k.key)), descStyle.Render(k.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	return b.String()
}
