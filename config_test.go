package cnext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "auto", cfg.GetString("emit.mode"))
	assert.Equal(t, "host", cfg.GetString("emit.target_profile"))
	assert.Equal(t, "clamp", cfg.GetString("overflow.default_policy"))
	assert.False(t, cfg.GetBool("cache.enabled"))
	assert.True(t, cfg.GetBool("output.atomic_write"))
}

func TestLoadConfigFileMergesOverrides(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "src", "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	configJSON := `{"emit.target_profile": "cortex-m0", "cache.enabled": true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cnext.config.json"), []byte(configJSON), 0o644))

	cfg := NewConfig()
	require.NoError(t, LoadConfigFile(cfg, nested))

	assert.Equal(t, "cortex-m0", cfg.GetString("emit.target_profile"))
	assert.True(t, cfg.GetBool("cache.enabled"))
	assert.Equal(t, "auto", cfg.GetString("emit.mode"), "keys absent from the file keep their default")
}

func TestLoadConfigFileNoFileIsNotAnError(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, LoadConfigFile(cfg, t.TempDir()))
	assert.Equal(t, "host", cfg.GetString("emit.target_profile"))
}
