// SPDX-License-Identifier: MPL-2.0

// Package config loads and persists the vsupdater configuration file. The
// file is TOML, read through viper (so defaults layer in) and written with
// go-toml to keep a stable, human-editable layout.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "vsupdater"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// ErrNotConfigured indicates a command needs a path that has not been set yet.
var ErrNotConfigured = errors.New("not configured")

//nolint:gochecknoglobals // Override seams, set via the helpers below.
var (
	// configDirOverride lets tests redirect the config directory.
	configDirOverride string

	// configFilePathOverride is set from the --config flag and takes priority
	// over the standard location.
	configFilePathOverride string
)

type (
	// Fileserver holds the vendor endpoints used for version discovery and
	// archive downloads.
	Fileserver struct {
		URL    string `mapstructure:"url"     toml:"url"`
		CDNURL string `mapstructure:"cdn_url" toml:"cdn_url"`
	}

	// LocalServer holds the paths of the managed server installation.
	LocalServer struct {
		ServerPath string `mapstructure:"server_path" toml:"server_path"`
		BackupPath string `mapstructure:"backup_path" toml:"backup_path"`
	}

	// World holds the world-backup paths and retention.
	World struct {
		DataPath  string `mapstructure:"data_path"  toml:"data_path"`
		BackupDir string `mapstructure:"backup_dir" toml:"backup_dir"`
		Keep      int    `mapstructure:"keep"       toml:"keep"`
	}

	// Config is the full vsupdater configuration.
	Config struct {
		Fileserver  Fileserver  `mapstructure:"fileserver"   toml:"fileserver"`
		LocalServer LocalServer `mapstructure:"local_server" toml:"local_server"`
		World       World       `mapstructure:"world"        toml:"world"`
	}
)

// DefaultConfig returns the built-in defaults: vendor stable-channel
// endpoints and unset local paths.
func DefaultConfig() *Config {
	return &Config{
		Fileserver: Fileserver{
			URL:    "https://account.vintagestory.at/files/stable/",
			CDNURL: "https://cdn.vintagestory.at/gamefiles/stable/",
		},
		World: World{
			Keep: 5,
		},
	}
}

// SetConfigFilePathOverride records a custom config file path (from the
// --config flag) that Load and FilePath will use instead of the standard
// location.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}

// SetConfigDirOverride redirects the config directory, for tests.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// ConfigDir returns the vsupdater configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the path of the config file that Load reads and Save
// writes, honoring the --config override.
func FilePath() (string, error) {
	if configFilePathOverride != "" {
		return configFilePathOverride, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// Load reads the configuration file, layering it over the built-in defaults.
// A missing file is not an error: the defaults are returned so read-only
// commands keep working before `configure` has run.
func Load() (*Config, error) {
	path, err := FilePath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType(ConfigFileExt)
	v.SetConfigFile(path)

	defaults := DefaultConfig()
	v.SetDefault("fileserver.url", defaults.Fileserver.URL)
	v.SetDefault("fileserver.cdn_url", defaults.Fileserver.CDNURL)
	v.SetDefault("local_server.server_path", defaults.LocalServer.ServerPath)
	v.SetDefault("local_server.backup_path", defaults.LocalServer.BackupPath)
	v.SetDefault("world.data_path", defaults.World.DataPath)
	v.SetDefault("world.backup_dir", defaults.World.BackupDir)
	v.SetDefault("world.keep", defaults.World.Keep)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the configuration to the config file, creating the config
// directory when necessary.
func Save(cfg *Config) error {
	path, err := FilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}

	return nil
}

// RequireServerPath returns the configured server path, or an
// ErrNotConfigured error with guidance when it is unset.
func (c *Config) RequireServerPath() (string, error) {
	if c.LocalServer.ServerPath == "" {
		return "", fmt.Errorf("server path is not set, run 'vsupdater configure <path>' first: %w", ErrNotConfigured)
	}
	return c.LocalServer.ServerPath, nil
}

// RequireDataPath returns the configured world data path, or an
// ErrNotConfigured error with guidance when it is unset.
func (c *Config) RequireDataPath() (string, error) {
	if c.World.DataPath == "" {
		return "", fmt.Errorf("world data path is not set, run 'vsupdater configure --data <path>' first: %w", ErrNotConfigured)
	}
	if c.World.BackupDir == "" {
		return "", fmt.Errorf("world backup directory is not set, run 'vsupdater configure --data <path>' or set world.backup_dir: %w", ErrNotConfigured)
	}
	return c.World.DataPath, nil
}
