package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateListenAddr(t *testing.T) {
	valid := []string{"127.0.0.1:8080", "localhost:9000", "[::1]:8080", "LOCALHOST:8080"}
	for _, addr := range valid {
		if err := ValidateListenAddr(addr); err != nil {
			t.Fatalf("expected %q to be valid: %v", addr, err)
		}
	}

	invalid := []string{"0.0.0.0:8080", ":8080", "192.168.1.10:8080", "example.com:80"}
	for _, addr := range invalid {
		if err := ValidateListenAddr(addr); err == nil {
			t.Fatalf("expected %q to be rejected", addr)
		}
	}
}

func TestExpandPathMakesAbsolute(t *testing.T) {
	resolved, err := ExpandPath("some/relative/dir")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !filepath.IsAbs(resolved) {
		t.Fatalf("expected absolute path, got %s", resolved)
	}
}

func TestExpandPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	resolved, err := ExpandPath("~/transcripts")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !strings.HasPrefix(resolved, home) {
		t.Fatalf("expected %s under home %s", resolved, home)
	}
}

func TestExpandPathRejectsEmpty(t *testing.T) {
	if _, err := ExpandPath("   "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "settings.bdb")
	if err := EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir: %v", err)
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected parent directory to exist: %v", err)
	}
}

func TestRefreshDebounce(t *testing.T) {
	if got := RefreshDebounce(250); got != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", got)
	}
	if got := RefreshDebounce(0); got != 500*time.Millisecond {
		t.Fatalf("expected default for zero, got %s", got)
	}
	if got := RefreshDebounce(-10); got != 500*time.Millisecond {
		t.Fatalf("expected default for negative, got %s", got)
	}
}
