package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIntAndDuration(t *testing.T) {
	t.Setenv("SYNC_BATCH_SIZE", "25")
	t.Setenv("SYNC_INTERVAL", "45")
	t.Setenv("SYNC_BACKOFF", "5m")
	t.Setenv("BAD_INT", "abc")

	n, err := Int("SYNC_BATCH_SIZE", 10)
	if err != nil || n != 25 {
		t.Fatalf("expected 25, got %d (%v)", n, err)
	}
	if n, err := Int("MISSING_INT", 7); err != nil || n != 7 {
		t.Fatalf("expected fallback 7, got %d (%v)", n, err)
	}
	if _, err := Int("BAD_INT", 1); err == nil {
		t.Fatal("expected error for non-integer value")
	}

	d, err := Duration("SYNC_INTERVAL", time.Second)
	if err != nil || d != 45*time.Second {
		t.Fatalf("expected 45s, got %s (%v)", d, err)
	}
	d, err = Duration("SYNC_BACKOFF", time.Second)
	if err != nil || d != 5*time.Minute {
		t.Fatalf("expected 5m, got %s (%v)", d, err)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("RATE_LIMIT_FAIL_OPEN", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	if Bool("RATE_LIMIT_FAIL_OPEN", true) {
		t.Fatal("expected false")
	}
	if !Bool("UNSET_BOOL", true) {
		t.Fatal("expected fallback true")
	}
	got := List("CORS_ALLOWED_ORIGINS")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8090"); err == nil {
		t.Fatal("expected invalid port error")
	}
	if p, err := Port("GRPC_PORT_UNSET", "9090"); err != nil || p != "9090" {
		t.Fatalf("expected fallback port, got %q (%v)", p, err)
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOTENV_ONLY=from-file\nDOTENV_BOTH=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_BOTH", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_ONLY") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := String("DOTENV_ONLY", ""); got != "from-file" {
		t.Fatalf("expected from-file, got %q", got)
	}
	if got := String("DOTENV_BOTH", ""); got != "from-env" {
		t.Fatalf("expected env value to win, got %q", got)
	}
}
