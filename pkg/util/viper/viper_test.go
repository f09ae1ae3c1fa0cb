package viper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Mode  string   `mapstructure:"mode"`
	Types []string `mapstructure:"types"`
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("whitelist:\n  mode: set\n  types:\n    - main.Trade\n"), 0o600))

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))

	var out sampleConfig
	require.NoError(t, cfg.UnmarshalKey("whitelist", &out))
	assert.Equal(t, "set", out.Mode)
	assert.Equal(t, []string{"main.Trade"}, out.Types)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"whitelist":{"mode":"permissive"}}`), 0o600))

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, "permissive", cfg.GetString("whitelist.mode"))
}

func TestLoadMissingFile(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LEDGERWIRE_WHITELIST_MODE", "deny")

	cfg := New()
	cfg.SetDefault("whitelist.mode", "set")
	assert.Equal(t, "deny", cfg.GetString("whitelist.mode"))
}
