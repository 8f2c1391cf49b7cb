package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/naveenspark/clinica/internal/obs"
	"github.com/naveenspark/clinica/internal/session"
)

const (
	defaultAPIURL    = "http://localhost:5000/api"
	defaultRateLimit = 10
	rateBurst        = 5
	defaultTimeout   = 15 * time.Second
)

type config struct {
	APIURL      string
	WebURL      string
	TokenPath   string
	EnvToken    string
	LogFile     string
	LogLevel    slog.Level
	MetricsAddr string
	RateLimit   float64 // requests per second; 0 disables limiting
	HTTPTimeout time.Duration
}

// loadConfig reads CLINICA_* variables through getenv. home is the user's
// home directory. Unusable values are reported to warn and replaced by
// their defaults.
func loadConfig(getenv func(string) string, home string, warn io.Writer) config {
	cfg := config{
		APIURL:      strings.TrimRight(strings.TrimSpace(getenv("CLINICA_API_URL")), "/"),
		WebURL:      strings.TrimRight(strings.TrimSpace(getenv("CLINICA_WEB_URL")), "/"),
		EnvToken:    strings.TrimSpace(getenv("CLINICA_TOKEN")),
		TokenPath:   session.TokenPath(home),
		LogFile:     strings.TrimSpace(getenv("CLINICA_LOG_FILE")),
		LogLevel:    obs.ParseLevel(getenv("CLINICA_LOG_LEVEL")),
		MetricsAddr: strings.TrimSpace(getenv("CLINICA_METRICS_ADDR")),
		RateLimit:   defaultRateLimit,
		HTTPTimeout: defaultTimeout,
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.WebURL == "" {
		cfg.WebURL = webURLFromAPI(cfg.APIURL)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(filepath.Dir(cfg.TokenPath), "clinica.log")
	}
	if raw := strings.TrimSpace(getenv("CLINICA_RATE_LIMIT")); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps < 0 {
			fmt.Fprintf(warn, "warning: ignoring CLINICA_RATE_LIMIT=%q, using %d\n", raw, defaultRateLimit) //nolint:errcheck
		} else {
			cfg.RateLimit = rps
		}
	}
	if raw := strings.TrimSpace(getenv("CLINICA_HTTP_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			fmt.Fprintf(warn, "warning: ignoring CLINICA_HTTP_TIMEOUT=%q, using %s\n", raw, defaultTimeout) //nolint:errcheck
		} else {
			cfg.HTTPTimeout = d
		}
	}
	return cfg
}

// webURLFromAPI derives the web app base from the API base by dropping a
// trailing /api segment.
func webURLFromAPI(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	if strings.HasSuffix(strings.ToLower(u), "/api") {
		return u[:len(u)-len("/api")]
	}
	return u
}
