package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/naveenspark/clinica/internal/browser"
	"github.com/naveenspark/clinica/internal/obs"
	"github.com/naveenspark/clinica/internal/permission"
	"github.com/naveenspark/clinica/internal/session"
	"github.com/naveenspark/clinica/internal/tui"
	"github.com/naveenspark/clinica/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home dir: %w", err)
	}
	cfg := loadConfig(os.Getenv, home, os.Stderr)

	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Println("clinica " + version)
			return nil
		case "help", "--help", "-h":
			printHelp(os.Stdout)
			return nil
		case "logout":
			return runLogout(cfg, os.Stdout)
		case "whoami":
			return runWhoami(cfg, os.Stdout, time.Now())
		case "menu":
			return runMenu(context.Background(), cfg, os.Stdout)
		default:
			return fmt.Errorf("unknown command %q (see clinica help)", args[0])
		}
	}
	return runTUI(cfg)
}

// deps is the object graph shared by the TUI and the subcommands.
type deps struct {
	client  *client.Client
	store   *session.Store
	metrics *obs.Metrics
}

func newDeps(cfg config, logger *slog.Logger, reg prometheus.Registerer) deps {
	metrics := obs.NewMetrics(reg)
	opts := []client.Option{
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		client.WithObserver(metrics),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(cfg.RateLimit, rateBurst))
	}
	c := client.New(cfg.APIURL, opts...)

	store := session.New(session.Options{
		Tokens:      session.FileTokenStore{Path: cfg.TokenPath, EnvToken: cfg.EnvToken},
		Auth:        c,
		Permissions: permission.NewFetcher(c, logger, metrics),
		Logger:      logger,
		Metrics:     metrics,
		OnToken:     c.SetToken,
	})
	return deps{client: c, store: store, metrics: metrics}
}

func runTUI(cfg config) error {
	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close() //nolint:errcheck
	logger := obs.NewLogger(logFile, cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d := newDeps(cfg, logger, reg)

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, reg, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx) //nolint:errcheck
		}()
	}

	app := tui.NewApp(tui.Config{
		Store:   d.store,
		Roles:   d.client,
		WebURL:  cfg.WebURL,
		Version: version,
		Open:    browser.Open,
		Copy:    clipboard.WriteAll,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	unsubscribe := d.store.Subscribe(func(s session.Snapshot) {
		p.Send(tui.SessionChangedMsg{Snapshot: s})
	})
	defer unsubscribe()

	logger.Info("starting", "version", version, "api", cfg.APIURL)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// openLog routes log output to path. The TUI owns stdout and stderr.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "clinica")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func startMetricsServer(addr string, g prometheus.Gatherer, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler(g))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "error", err.Error())
		}
	}()
	return srv
}

// stderrLogger is used by the one-shot subcommands, which keep the terminal.
func stderrLogger(cfg config) *slog.Logger {
	return obs.NewLogger(os.Stderr, max(cfg.LogLevel, slog.LevelWarn))
}
