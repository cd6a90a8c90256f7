package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order; the
// first one found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinedex/config.yaml",
	"/etc/cinedex/config.yml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "CINEDEX_CONFIG"

// EnvPrefix namespaces all environment overrides, e.g.
// CINEDEX_TRAKT_CLIENT_ID maps to trakt.client_id.
const EnvPrefix = "CINEDEX_"

type ServerConfig struct {
	ListenAddr string `koanf:"listen_addr"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type TraktConfig struct {
	ClientID    string `koanf:"client_id"`
	AccessToken string `koanf:"access_token"`
}

type TMDBConfig struct {
	APIKey string `koanf:"api_key"`
}

type FanartConfig struct {
	APIKey string `koanf:"api_key"`
	// ClientKey is the personal fanart.tv key; clearlogo/clearart artwork is
	// only resolved when it is present.
	ClientKey string `koanf:"client_key"`
}

type IMDBConfig struct {
	UserID string `koanf:"user_id"`
}

type CatalogConfig struct {
	Language string `koanf:"language"`
}

type LoggingConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"` // empty logs to stderr only
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Trakt    TraktConfig    `koanf:"trakt"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Fanart   FanartConfig   `koanf:"fanart"`
	IMDB     IMDBConfig     `koanf:"imdb"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Logging  LoggingConfig  `koanf:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{ListenAddr: ":8787"},
		Database: DatabaseConfig{Path: "cinedex.db"},
		Catalog:  CatalogConfig{Language: "en"},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load assembles the configuration from layered sources: built-in defaults,
// then an optional YAML file, then CINEDEX_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps CINEDEX_TRAKT_CLIENT_ID onto trakt.client_id: the first
// underscore separates the section, the rest stays part of the key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	return nil
}

// UserKey partitions cached artwork per credential set: records resolved with
// one pair of API keys are never reused for another.
func (c *Config) UserKey() string {
	return c.Fanart.ClientKey + c.TMDB.APIKey
}
