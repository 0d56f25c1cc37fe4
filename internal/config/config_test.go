package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_items": 50, "persist_enabled": true}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxItems)
	assert.True(t, cfg.PersistEnabled)
	// Untouched fields keep defaults.
	assert.Equal(t, "Alt+C", cfg.HotkeyShowPanel)
	assert.Equal(t, 120, cfg.DebounceMs)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateClampsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_items": -3, "debounce_ms": 0, "hotkey_show_panel": ""}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.MaxItems)
	assert.Equal(t, 120, cfg.DebounceMs)
	assert.Equal(t, "Alt+C", cfg.HotkeyShowPanel)

	require.NoError(t, os.WriteFile(path, []byte(`{"max_items": 99999}`), 0644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.MaxItems)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := Default()
	cfg.MaxItems = 77
	cfg.HotkeyShowPanel = "Ctrl+Shift+V"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
