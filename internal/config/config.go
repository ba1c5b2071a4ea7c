package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the CLI looks for its configuration.
	DefaultPath = "config/statgraph.yaml"
	// EnvPath overrides DefaultPath.
	EnvPath = "STATGRAPH_CONFIG"
)

// App holds the configuration of the statcalc tool.
type App struct {
	LogLevel string `yaml:"log_level"`

	// Database holds the stat catalog (types, tags, modifier sets).
	Database DatabaseConfig `yaml:"database"`

	Stats StatsSection `yaml:"stats"`
	Tags  TagsSection  `yaml:"tags"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultApp returns App config with sensible defaults.
func DefaultApp() App {
	return App{
		LogLevel: "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "statgraph",
			Password: "statgraph",
			DBName:   "statgraph",
			SSLMode:  "disable",
		},
		Tags: TagsSection{
			Policy: "permissive",
		},
	}
}

// Path resolves the config file location: explicit value, then the
// environment override, then DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load loads the config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (App, error) {
	cfg := DefaultApp()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (a App) SlogLevel() slog.Level {
	switch strings.ToLower(a.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
