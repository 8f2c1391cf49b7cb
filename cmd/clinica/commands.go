package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/naveenspark/clinica/internal/menu"
	"github.com/naveenspark/clinica/internal/session"
	"github.com/naveenspark/clinica/internal/token"
)

func runLogout(cfg config, w io.Writer) error {
	if _, err := os.Stat(cfg.TokenPath); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(w, "Already logged out.") //nolint:errcheck
	} else {
		if err := (session.FileTokenStore{Path: cfg.TokenPath}).Clear(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Logged out.") //nolint:errcheck
	}
	if cfg.EnvToken != "" {
		fmt.Fprintln(w, "CLINICA_TOKEN is still set; unset it to stay logged out.") //nolint:errcheck
	}
	return nil
}

func runWhoami(cfg config, w io.Writer, now time.Time) error {
	raw, err := session.FileTokenStore{Path: cfg.TokenPath, EnvToken: cfg.EnvToken}.Load()
	if err != nil {
		return err
	}
	if raw == "" {
		fmt.Fprintln(w, "Not logged in.") //nolint:errcheck
		return nil
	}
	claims, err := token.Parse(raw, now)
	if err != nil {
		var decErr *token.DecodeError
		if errors.As(err, &decErr) && decErr.Reason == token.ReasonExpired {
			fmt.Fprintln(w, "Session expired. Run clinica to sign in again.") //nolint:errcheck
			return nil
		}
		return fmt.Errorf("saved token: %w", err)
	}

	role := claims.Role
	if canonical, ok := menu.CanonicalRole(role); ok {
		role = fmt.Sprintf("%s (%s)", canonical, claims.Role)
	}
	rows := [][2]string{
		{"subject", claims.Subject},
		{"name", claims.DisplayName},
		{"email", claims.Email},
		{"role", role},
	}
	if !claims.ExpiresAt.IsZero() {
		rows = append(rows, [2]string{"expires", claims.ExpiresAt.Local().Format(time.RFC1123)})
	}
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", r[0])), r[1]) //nolint:errcheck
	}
	return nil
}

func runMenu(ctx context.Context, cfg config, w io.Writer) error {
	d := newDeps(cfg, stderrLogger(cfg), prometheus.NewRegistry())
	d.store.Initialize(ctx)
	snap := d.store.Snapshot()
	if !snap.LoggedIn() {
		fmt.Fprintln(w, "Not logged in.") //nolint:errcheck
		return nil
	}
	if len(snap.Permissions) == 0 {
		fmt.Fprintln(w, "  (no permissions from the API, showing the default menu for the role)") //nolint:errcheck
	}
	for _, item := range snap.Menu {
		fmt.Fprintf(w, "  %-24s %-14s %s\n", item.Label, item.IconRef, item.Route) //nolint:errcheck
	}
	return nil
}

func printHelp(w io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#38bdf8")).
		Bold(true).
		Render("C L I N I C A")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"clinica", "Sign in and browse your menu (interactive TUI)"},
		{"clinica whoami", "Show who the saved session belongs to"},
		{"clinica menu", "Print the menu of the saved session"},
		{"clinica logout", "Clear the saved session"},
		{"clinica --version", "Show version"},
		{"clinica help", "You are here"},
	}
	envs := []struct{ name, desc string }{
		{"CLINICA_API_URL", "API base URL (default " + defaultAPIURL + ")"},
		{"CLINICA_WEB_URL", "Web app base for opening routes"},
		{"CLINICA_TOKEN", "Bearer token, overrides the saved one"},
		{"CLINICA_LOG_FILE", "Log file (default ~/.clinica/clinica.log)"},
		{"CLINICA_LOG_LEVEL", "debug, info, warn or error"},
		{"CLINICA_METRICS_ADDR", "Serve Prometheus metrics on this address"},
		{"CLINICA_RATE_LIMIT", "API requests per second, 0 for no limit"},
		{"CLINICA_HTTP_TIMEOUT", "API request timeout, e.g. 10s (default 15s)"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  Commands:\n", title) //nolint:errcheck
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc)) //nolint:errcheck
	}
	fmt.Fprintf(w, "\n  Environment:\n") //nolint:errcheck
	for _, e := range envs {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", e.name)), descStyle.Render(e.desc)) //nolint:errcheck
	}
	fmt.Fprintln(w) //nolint:errcheck
}
