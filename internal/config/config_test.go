package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
port: 9001
tick_interval_ms: 250
game_module: "custom"
log_level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, "custom", cfg.GameModule)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched keys keep their defaults.
	assert.Equal(t, Default().ZoneParallelism, cfg.ZoneParallelism)
	assert.Equal(t, Default().SendQueueSize, cfg.SendQueueSize)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
port: 9001
tick_intervall_ms: 250
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Server)
		ok     bool
	}{
		{"defaults are valid", func(*Server) {}, true},
		{"zero port", func(c *Server) { c.Port = 0 }, false},
		{"port too large", func(c *Server) { c.Port = 70000 }, false},
		{"empty database url", func(c *Server) { c.DatabaseURL = "" }, false},
		{"zero tick interval", func(c *Server) { c.TickIntervalMs = 0 }, false},
		{"negative parallelism", func(c *Server) { c.ZoneParallelism = -1 }, false},
		{"empty game module", func(c *Server) { c.GameModule = "" }, false},
		{"zero send queue", func(c *Server) { c.SendQueueSize = 0 }, false},
		{"zero write timeout", func(c *Server) { c.WriteTimeoutMs = 0 }, false},
		{"negative session timeout", func(c *Server) { c.SessionTimeoutSeconds = -1 }, false},
		{"session timeout zero means no expiry", func(c *Server) { c.SessionTimeoutSeconds = 0 }, true},
		{"zero min password length", func(c *Server) { c.MinPasswordLength = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestServer_Addr(t *testing.T) {
	cfg := Server{BindAddress: "127.0.0.1", Port: 8123}
	assert.Equal(t, "127.0.0.1:8123", cfg.Addr())
}
