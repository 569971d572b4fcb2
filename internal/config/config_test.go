package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exposer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "exposer:changes:", cfg.Redis.Prefix)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  shutdown_timeout: 2s
log:
  level: debug
  format: json
redis:
  addr: "localhost:6379"
metrics:
  enabled: true
`)
	t.Setenv("EXPOSER_REDIS_PREFIX", "lab:")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":7000"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr, "set flags win over the file")
	assert.Equal(t, "debug", cfg.Log.Level, "unset flags fall through to the file")
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "lab:", cfg.Redis.Prefix)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeConfig(t, "log:\n  format: xml\n"), nil)
	assert.Error(t, err)
}
