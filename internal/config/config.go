// Package config loads the scrobblepod configuration from TOML files.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aboyet/scrobblepod/internal/ipod"
	"github.com/aboyet/scrobblepod/internal/scrobble"
)

// ErrNoCredentials is returned by Validate when the username or the
// password digest is missing.
var ErrNoCredentials = errors.New("username and password are not configured")

type Config struct {
	// DevicePath is the device's iTunes directory, the one holding
	// iTunesDB and the play-count file.
	DevicePath string `koanf:"device_path"`

	Username string `koanf:"username"`
	// Password is digested at load time and never kept around; prefer
	// storing password_md5 directly.
	Password    string `koanf:"password"`
	PasswordMD5 string `koanf:"password_md5"`

	// BackupURL receives a copy of every submission (optional).
	BackupURL string `koanf:"backup_url"`
	// HandshakeURL overrides the submission service endpoint (mainly
	// for testing against a local server).
	HandshakeURL string `koanf:"handshake_url"`

	// VariousArtists is the compilation marker set. Entries may
	// themselves be ";"-separated, the form older preference files
	// used. Defaults to ["Various Artists"].
	VariousArtists []string `koanf:"various_artists"`
	// ParseVariousArtists enables the compilation credit split
	// (default true).
	ParseVariousArtists *bool `koanf:"parse_various_artists"`
	// ExpandMultiPlay reports repeat plays as individual plays
	// (default true).
	ExpandMultiPlay *bool `koanf:"expand_multi_play"`
	// MinTrackSeconds overrides the protocol's minimum track length.
	MinTrackSeconds int64 `koanf:"min_track_seconds"`
}

// Load reads configuration files in priority order (last wins):
// ~/.config/scrobblepod/config.toml, then ./config.toml.
func Load() (*Config, error) {
	return loadFrom(configPaths())
}

func loadFrom(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.DevicePath = expandPath(cfg.DevicePath)
	if cfg.Password != "" && cfg.PasswordMD5 == "" {
		cfg.PasswordMD5 = scrobble.DigestPassword(cfg.Password)
	}
	cfg.Password = ""

	return cfg, nil
}

func configPaths() []string {
	paths := []string{}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "scrobblepod", "config.toml"))
	}

	// ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Validate checks the fields a real submission needs.
func (c *Config) Validate() error {
	if c.DevicePath == "" {
		return errors.New("device_path is not configured")
	}
	if c.Username == "" || c.PasswordMD5 == "" {
		return ErrNoCredentials
	}
	return nil
}

// Markers returns the resolved compilation marker set, or nil when the
// split is disabled.
func (c *Config) Markers() []string {
	if c.ParseVariousArtists != nil && !*c.ParseVariousArtists {
		return nil
	}
	entries := c.VariousArtists
	if len(entries) == 0 {
		entries = []string{"Various Artists"}
	}
	var markers []string
	for _, e := range entries {
		markers = append(markers, ipod.SplitMarkers(e)...)
	}
	return markers
}

// ExpandMultiPlayEnabled returns the multi-play expansion flag with
// its default applied.
func (c *Config) ExpandMultiPlayEnabled() bool {
	return c.ExpandMultiPlay == nil || *c.ExpandMultiPlay
}
