package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "none")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 45*time.Second, cfg.RingTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.CallBurst)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers)
	assert.Empty(t, cfg.DatabasePath)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	yaml := `
mode: debug
port: 9090
ring_timeout: 10s
log_level: debug
database_path: users.db
ice_servers:
  - stun:a.example.org:3478
  - turn:b.example.org:3478
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("SKYCALLING_SECRET", "from-env")
	t.Setenv("SKYCALLING_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "from-env", cfg.Secret)
	assert.Equal(t, 10*time.Second, cfg.RingTimeout)
	assert.Equal(t, "users.db", cfg.DatabasePath)
	assert.Equal(t, []string{"stun:a.example.org:3478", "turn:b.example.org:3478"}, cfg.ICEServers)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "none")
	t.Setenv("SKYCALLING_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}
