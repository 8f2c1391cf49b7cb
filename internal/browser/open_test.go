package browser

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://clinica.test/citas", false},
		{"http://localhost:5000/dashboard", false},
		{"/dashboard", true},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"https://", true},
		{"://bad", true},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			err := Validate(tc.url)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tc.url, err, tc.wantErr)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	const u = "https://clinica.test/citas"
	tests := []struct {
		goos     string
		wantName string
		wantErr  bool
	}{
		{"darwin", "open", false},
		{"linux", "xdg-open", false},
		{"windows", "rundll32", false},
		{"plan9", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.goos, func(t *testing.T) {
			name, args, err := command(tc.goos, u)
			if (err != nil) != tc.wantErr {
				t.Fatalf("command(%q) error = %v, wantErr %v", tc.goos, err, tc.wantErr)
			}
			if name != tc.wantName {
				t.Errorf("command(%q) name = %q, want %q", tc.goos, name, tc.wantName)
			}
			if !tc.wantErr && args[len(args)-1] != u {
				t.Errorf("command(%q) args = %v, want url last", tc.goos, args)
			}
		})
	}
}

func TestOpenRejectsBeforeExec(t *testing.T) {
	err := Open("file:///etc/passwd")
	if err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Errorf("expected scheme error, got %v", err)
	}
}
