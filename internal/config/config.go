// Package config builds the typed reconcile settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/reconcile/internal/common"
)

// EnvPrefix is prepended to environment variable names, so
// session.ttl is read from RECONCILE_SESSION_TTL.
const EnvPrefix = "RECONCILE"

// Session store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the typed view of every setting the service reads.
type Config struct {
	Logging  LoggingConfig
	Database DatabaseConfig
	Server   ServerConfig
	Session  SessionConfig
	Match    MatchConfig
	Upload   UploadConfig
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// UploadConfig bounds accepted statement files.
type UploadConfig struct {
	MaxBytes int64
}

// SessionConfig configures the temporary result store.
type SessionConfig struct {
	Backend       string
	TTL           time.Duration
	SweepInterval time.Duration
}

// MatchConfig tunes the auto-match engine.
type MatchConfig struct {
	Threshold int
	MaxPairs  int64
}

// DatabaseConfig selects permanent storage.
type DatabaseConfig struct {
	Driver string
	Path   string
	DSN    string
}

// DefaultDatabasePath is where the SQLite database lives unless configured.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reconcile.db"
	}
	return filepath.Join(home, ".local", "share", "reconcile", "reconcile.db")
}

// ExpandPath resolves a leading ~ to the home directory and substitutes
// $VAR references. Paths it cannot resolve are returned unchanged.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("upload.max_bytes", int64(10*1024*1024))
	v.SetDefault("session.backend", BackendMemory)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("match.threshold", 70)
	v.SetDefault("match.max_pairs", int64(25_000_000))
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("database.dsn", "")
}

// Load reads the process-wide viper instance.
func Load() (*Config, error) {
	SetDefaults(viper.GetViper())
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds a Config from v and validates it. Defaults must already
// be registered for keys the caller has not set.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("upload.max_bytes"),
		},
		Session: SessionConfig{
			Backend:       strings.ToLower(v.GetString("session.backend")),
			TTL:           v.GetDuration("session.ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Match: MatchConfig{
			Threshold: v.GetInt("match.threshold"),
			MaxPairs:  v.GetInt64("match.max_pairs"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   ExpandPath(v.GetString("database.path")),
			DSN:    v.GetString("database.dsn"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("%w: upload.max_bytes must be positive", common.ErrInvalidConfig)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("%w: session.ttl must be positive", common.ErrInvalidConfig)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("%w: session.sweep_interval must be positive", common.ErrInvalidConfig)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown session.backend %q", common.ErrInvalidConfig, c.Session.Backend)
	}
	if c.Match.Threshold < 0 || c.Match.MaxPairs < 0 {
		return fmt.Errorf("%w: match settings must not be negative", common.ErrInvalidConfig)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", common.ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for postgres", common.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// EnvKeyReplacer maps nested keys to environment names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
