package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "cli.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Current().Server; got != "http://127.0.0.1:7380" {
		t.Errorf("Current().Server = %q, want default", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")
	cfg := Default()
	cfg.Profiles["lab"] = Profile{Server: "https://lab-1:7380", Device: "edge-1", Timeout: 2 * time.Second}
	cfg.CurrentProfile = "lab"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p := loaded.Current()
	if p.Server != "https://lab-1:7380" || p.Device != "edge-1" || p.Timeout != 2*time.Second {
		t.Errorf("Current() = %+v, want lab profile", p)
	}
}

func TestCurrentUnknownProfile(t *testing.T) {
	cfg := &CLIConfig{CurrentProfile: "gone"}
	if got := cfg.Current().Store; got != "configuration" {
		t.Errorf("Current().Store = %q, want default profile", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	os.WriteFile(path, []byte("profiles: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}
