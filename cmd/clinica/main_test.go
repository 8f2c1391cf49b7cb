package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func envFrom(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	var warn bytes.Buffer
	cfg := loadConfig(envFrom(nil), "/home/ana", &warn)

	if cfg.APIURL != defaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.WebURL != "http://localhost:5000" {
		t.Errorf("WebURL = %q, want %q", cfg.WebURL, "http://localhost:5000")
	}
	if cfg.TokenPath != filepath.Join("/home/ana", ".clinica", "token") {
		t.Errorf("TokenPath = %q", cfg.TokenPath)
	}
	if cfg.LogFile != filepath.Join("/home/ana", ".clinica", "clinica.log") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.RateLimit != defaultRateLimit {
		t.Errorf("RateLimit = %v, want %d", cfg.RateLimit, defaultRateLimit)
	}
	if cfg.HTTPTimeout != defaultTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, defaultTimeout)
	}
	if warn.Len() != 0 {
		t.Errorf("unexpected warnings: %q", warn.String())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	var warn bytes.Buffer
	cfg := loadConfig(envFrom(map[string]string{
		"CLINICA_API_URL":      "https://api.clinica.test/v1/",
		"CLINICA_WEB_URL":      "https://clinica.test/",
		"CLINICA_TOKEN":        " abc.def.ghi ",
		"CLINICA_LOG_FILE":     "/tmp/c.log",
		"CLINICA_LOG_LEVEL":    "debug",
		"CLINICA_METRICS_ADDR": "127.0.0.1:9090",
		"CLINICA_RATE_LIMIT":   "0",
		"CLINICA_HTTP_TIMEOUT": "3s",
	}), "/home/ana", &warn)

	want := config{
		APIURL:      "https://api.clinica.test/v1",
		WebURL:      "https://clinica.test",
		TokenPath:   filepath.Join("/home/ana", ".clinica", "token"),
		EnvToken:    "abc.def.ghi",
		LogFile:     "/tmp/c.log",
		LogLevel:    slog.LevelDebug,
		MetricsAddr: "127.0.0.1:9090",
		RateLimit:   0,
		HTTPTimeout: 3 * time.Second,
	}
	if cfg != want {
		t.Errorf("loadConfig = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigInvalidRateLimit(t *testing.T) {
	for _, raw := range []string{"fast", "-3"} {
		t.Run(raw, func(t *testing.T) {
			var warn bytes.Buffer
			cfg := loadConfig(envFrom(map[string]string{"CLINICA_RATE_LIMIT": raw}), "/home/ana", &warn)
			if cfg.RateLimit != defaultRateLimit {
				t.Errorf("RateLimit = %v, want default", cfg.RateLimit)
			}
			if !strings.Contains(warn.String(), "CLINICA_RATE_LIMIT") {
				t.Errorf("expected a warning, got %q", warn.String())
			}
		})
	}
}

func TestLoadConfigInvalidTimeout(t *testing.T) {
	for _, raw := range []string{"soon", "0s", "-1s"} {
		t.Run(raw, func(t *testing.T) {
			var warn bytes.Buffer
			cfg := loadConfig(envFrom(map[string]string{"CLINICA_HTTP_TIMEOUT": raw}), "/home/ana", &warn)
			if cfg.HTTPTimeout != defaultTimeout {
				t.Errorf("HTTPTimeout = %v, want default", cfg.HTTPTimeout)
			}
			if !strings.Contains(warn.String(), "CLINICA_HTTP_TIMEOUT") {
				t.Errorf("expected a warning, got %q", warn.String())
			}
		})
	}
}

func TestWebURLFromAPI(t *testing.T) {
	tests := []struct {
		api, want string
	}{
		{"http://localhost:5000/api", "http://localhost:5000"},
		{"http://localhost:5000/api/", "http://localhost:5000"},
		{"https://clinica.test/API", "https://clinica.test"},
		{"https://clinica.test/apiv2", "https://clinica.test/apiv2"},
		{"https://api.clinica.test", "https://api.clinica.test"},
	}
	for _, tc := range tests {
		if got := webURLFromAPI(tc.api); got != tc.want {
			t.Errorf("webURLFromAPI(%q) = %q, want %q", tc.api, got, tc.want)
		}
	}
}

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func writeToken(t *testing.T, path, raw string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) config {
	t.Helper()
	return loadConfig(envFrom(nil), t.TempDir(), &bytes.Buffer{})
}

func TestRunLogout(t *testing.T) {
	cfg := testConfig(t)
	writeToken(t, cfg.TokenPath, "abc")

	var out bytes.Buffer
	if err := runLogout(cfg, &out); err != nil {
		t.Fatalf("runLogout: %v", err)
	}
	if !strings.Contains(out.String(), "Logged out.") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(cfg.TokenPath); !os.IsNotExist(err) {
		t.Error("expected token file removed")
	}

	out.Reset()
	if err := runLogout(cfg, &out); err != nil {
		t.Fatalf("second runLogout: %v", err)
	}
	if !strings.Contains(out.String(), "Already logged out.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunLogoutWarnsAboutEnvToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnvToken = "abc"
	var out bytes.Buffer
	if err := runLogout(cfg, &out); err != nil {
		t.Fatalf("runLogout: %v", err)
	}
	if !strings.Contains(out.String(), "CLINICA_TOKEN") {
		t.Errorf("expected env token notice, got %q", out.String())
	}
}

func TestRunWhoami(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := testConfig(t)

	var out bytes.Buffer
	if err := runWhoami(cfg, &out, now); err != nil {
		t.Fatalf("runWhoami: %v", err)
	}
	if !strings.Contains(out.String(), "Not logged in.") {
		t.Errorf("output = %q", out.String())
	}

	writeToken(t, cfg.TokenPath, mint(t, jwt.MapClaims{
		"sub":   "42",
		"name":  "Ana Ruiz",
		"email": "ana@clinica.test",
		"role":  "2",
		"exp":   now.Add(time.Hour).Unix(),
	}))
	out.Reset()
	if err := runWhoami(cfg, &out, now); err != nil {
		t.Fatalf("runWhoami: %v", err)
	}
	for _, want := range []string{"42", "Ana Ruiz", "ana@clinica.test", "doctor (2)", "expires"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := runWhoami(cfg, &out, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("runWhoami expired: %v", err)
	}
	if !strings.Contains(out.String(), "Session expired") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunWhoamiMalformedToken(t *testing.T) {
	cfg := testConfig(t)
	writeToken(t, cfg.TokenPath, "not-a-token")
	if err := runWhoami(cfg, &bytes.Buffer{}, time.Now()); err == nil {
		t.Error("expected an error for a malformed saved token")
	}
}

const secretaryMenus = `[
	{"idMenu": 4, "nombreMenu": "Pacientes", "ruta": "/pacientes", "habilitado": true},
	{"idMenu": 1, "nombreMenu": "Dashboard", "ruta": "/dashboard", "habilitado": true},
	{"idMenu": 9, "nombreMenu": "Usuarios", "ruta": "/usuarios", "habilitado": false}
]`

func TestRunMenu(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(secretaryMenus)) //nolint:errcheck
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.APIURL = srv.URL + "/api"
	cfg.RateLimit = 0
	raw := mint(t, jwt.MapClaims{"role": "4", "email": "sec@clinica.test"})
	writeToken(t, cfg.TokenPath, raw)

	var out bytes.Buffer
	if err := runMenu(context.Background(), cfg, &out); err != nil {
		t.Fatalf("runMenu: %v", err)
	}
	if gotPath != "/api/rol/menus/4" {
		t.Errorf("path = %q, want /api/rol/menus/4", gotPath)
	}
	if gotAuth != "Bearer "+raw {
		t.Errorf("Authorization = %q", gotAuth)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 menu lines, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "Dashboard") || !strings.Contains(lines[1], "Pacientes") {
		t.Errorf("expected sorted menu, got:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Usuarios") {
		t.Error("disabled menu printed")
	}
}

func TestRunMenuFallsBackWhenAPIFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.APIURL = srv.URL
	cfg.LogLevel = slog.LevelError
	writeToken(t, cfg.TokenPath, mint(t, jwt.MapClaims{"role": "3"}))

	var out bytes.Buffer
	if err := runMenu(context.Background(), cfg, &out); err != nil {
		t.Fatalf("runMenu: %v", err)
	}
	for _, want := range []string{"default menu", "Dashboard", "Mis Citas", "Notificaciones"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestPrintHelp(t *testing.T) {
	var out bytes.Buffer
	printHelp(&out)
	for _, want := range []string{"clinica whoami", "clinica logout", "CLINICA_API_URL", "CLINICA_RATE_LIMIT"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := run([]string{"frobnicate"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}
}
