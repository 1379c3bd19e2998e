// Package config loads the daylog configuration from a YAML file with
// environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Sync     SyncConfig     `yaml:"sync"`
	Weather  WeatherConfig  `yaml:"weather"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SpotifyConfig struct {
	ClientID    string `yaml:"client_id"`
	RedirectURL string `yaml:"redirect_url"`
}

type SyncConfig struct {
	Interval        time.Duration `yaml:"interval"`
	PageLimit       int           `yaml:"page_limit"`
	MaxPagesPerSync int           `yaml:"max_pages_per_sync"`
	InitialLookback time.Duration `yaml:"initial_lookback"`
	ArtistWorkers   int           `yaml:"artist_workers"`
	Timeout         time.Duration `yaml:"timeout"`
}

type WeatherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Location string `yaml:"location"`
}

type SecretsConfig struct {
	// Backend selects where tokens are kept: "keyring" or "file".
	Backend string `yaml:"backend"`
	// FilePath overrides the secrets file location for the file backend.
	FilePath string `yaml:"file_path"`
}

// Load reads the config file at path. A missing file is not an error: the
// defaults are used so the app runs without any configuration on disk.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	if cfg.Spotify.ClientID == "" {
		cfg.Spotify.ClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	}
	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv("VISUAL_CROSSING_API_KEY")
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "daylog.sqlite3"
	}
	if c.Spotify.RedirectURL == "" {
		c.Spotify.RedirectURL = "http://127.0.0.1:8080/callback"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 15 * time.Minute
	}
	if c.Sync.PageLimit == 0 {
		c.Sync.PageLimit = 50
	}
	if c.Sync.MaxPagesPerSync == 0 {
		c.Sync.MaxPagesPerSync = 5
	}
	if c.Sync.InitialLookback == 0 {
		c.Sync.InitialLookback = 24 * time.Hour
	}
	if c.Sync.ArtistWorkers == 0 {
		c.Sync.ArtistWorkers = 4
	}
	if c.Sync.Timeout == 0 {
		c.Sync.Timeout = 30 * time.Second
	}
	if c.Secrets.Backend == "" {
		c.Secrets.Backend = "keyring"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
