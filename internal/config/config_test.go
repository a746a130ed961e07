package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/reconcile/internal/common"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(10485760), cfg.Upload.MaxBytes)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 70, cfg.Match.Threshold)
	assert.Equal(t, int64(25_000_000), cfg.Match.MaxPairs)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "reconcile.db", filepath.Base(cfg.Database.Path))
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("RECONCILE_SESSION_TTL", "2h")
	t.Setenv("RECONCILE_MATCH_THRESHOLD", "80")

	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer())
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 80, cfg.Match.Threshold)
}

func TestLoadFrom_ExpandsDatabasePath(t *testing.T) {
	t.Setenv("RECONCILE_TEST_DIR", "/tmp/reconcile-test")

	v := newViper()
	v.Set("database.path", "$RECONCILE_TEST_DIR/data.db")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/reconcile-test/data.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown backend", key: "session.backend", value: "redis"},
		{name: "zero ttl", key: "session.ttl", value: "0s"},
		{name: "negative upload limit", key: "upload.max_bytes", value: -1},
		{name: "unknown driver", key: "database.driver", value: "oracle"},
		{name: "postgres without dsn", key: "database.driver", value: "postgres"},
		{name: "bad log level", key: "logging.level", value: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := LoadFrom(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "x.db"), ExpandPath("~/x.db"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
