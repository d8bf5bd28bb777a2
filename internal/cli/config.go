package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the optional TOML configuration loaded from
// ~/.config/plotline/config.toml (or $XDG_CONFIG_HOME/plotline/config.toml).
// Every field has a working zero value; command-line flags override config.
type Config struct {
	// CacheDir overrides the default XDG cache location.
	CacheDir string `toml:"cache_dir"`

	// Policy is the default completeness policy for analyze runs.
	Policy string `toml:"policy"`

	Serve ServeConfig `toml:"serve"`
	Redis RedisConfig `toml:"redis"`
	Mongo MongoConfig `toml:"mongo"`
}

// ServeConfig configures the HTTP API command.
type ServeConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr"`

	// StoreDir is the directory for the file-backed story store.
	StoreDir string `toml:"store_dir"`
}

// RedisConfig configures the optional shared cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoConfig configures the optional MongoDB story store.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// LoadConfig reads the config file from the standard location.
// A missing or unreadable file yields the zero config: configuration is
// strictly optional.
func LoadConfig() *Config {
	cfg := &Config{}
	path, err := configPath()
	if err != nil {
		return cfg
	}
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	// A malformed file is ignored rather than fatal; flags still work.
	_, _ = toml.DecodeFile(path, cfg)
	return cfg
}

func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
