// Package config loads the optional TOML configuration file for
// agentwired. Every field it can set is also settable from the command
// line; a value the file leaves undefined keeps whatever the caller
// already had (typically the getopt-parsed flag default).
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Daemon holds the settings agentwired needs to pick a socket and a
// signing backend.
type Daemon struct {
	SocketName string
	Connector  string
	KeyID      int
	AuthFile   string
	KeyFile    string
	PidFile    string
}

// fileConfig mirrors the TOML schema; toml.Decode leaves fields the file
// doesn't mention at their zero value, which Load only applies when
// meta.IsDefined reports the key was actually present.
type fileConfig struct {
	SocketName string `toml:"socket_name"`
	Connector  string `toml:"connector"`
	KeyID      int    `toml:"key_id"`
	AuthFile   string `toml:"auth_file"`
	KeyFile    string `toml:"key_file"`
	PidFile    string `toml:"pid_file"`
}

// Load overlays the settings defined in the TOML file at path onto cfg,
// returning the result. Fields the file doesn't mention are left as cfg
// already had them, so callers should seed cfg with their flag defaults
// before calling Load.
func Load(path string, cfg Daemon) (Daemon, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Daemon{}, fmt.Errorf("config: loading %q: %w", path, err)
	}

	if meta.IsDefined("socket_name") {
		cfg.SocketName = strings.TrimSpace(raw.SocketName)
	}
	if meta.IsDefined("connector") {
		cfg.Connector = strings.TrimSpace(raw.Connector)
	}
	if meta.IsDefined("key_id") {
		cfg.KeyID = raw.KeyID
	}
	if meta.IsDefined("auth_file") {
		cfg.AuthFile = strings.TrimSpace(raw.AuthFile)
	}
	if meta.IsDefined("key_file") {
		cfg.KeyFile = strings.TrimSpace(raw.KeyFile)
	}
	if meta.IsDefined("pid_file") {
		cfg.PidFile = strings.TrimSpace(raw.PidFile)
	}
	return cfg, nil
}
