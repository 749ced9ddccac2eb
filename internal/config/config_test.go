package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverlaysDefinedFieldsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentwired.toml")
	content := `
socket_name = "/run/agentwire/agent.sock"
key_file = "/etc/agentwire/id_ed25519"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	defaults := Daemon{Connector: "localhost:12345", KeyID: -1}
	cfg, err := Load(path, defaults)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SocketName != "/run/agentwire/agent.sock" {
		t.Errorf("got SocketName %q", cfg.SocketName)
	}
	if cfg.KeyFile != "/etc/agentwire/id_ed25519" {
		t.Errorf("got KeyFile %q", cfg.KeyFile)
	}
	// connector and key_id were absent from the file, so the defaults
	// the caller seeded Daemon with must survive untouched.
	if cfg.Connector != "localhost:12345" {
		t.Errorf("got Connector %q, wanted the seeded default", cfg.Connector)
	}
	if cfg.KeyID != -1 {
		t.Errorf("got KeyID %d, wanted the seeded default", cfg.KeyID)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), Daemon{}); err == nil {
		t.Fatal("expected an error for a nonexistent config file")
	}
}
