package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "cliphist"

type Config struct {
	MaxItems       int  `json:"max_items"`
	PersistEnabled bool `json:"persist_enabled"`

	DBPath string `json:"db_path,omitempty"`

	HotkeyShowPanel   string `json:"hotkey_show_panel"`
	HotkeyTogglePause string `json:"hotkey_toggle_pause"`

	DebounceMs    int `json:"debounce_ms"`
	MaxImageBytes int `json:"max_image_bytes"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

func Default() *Config {
	return &Config{
		MaxItems:       200,
		PersistEnabled: false,

		HotkeyShowPanel:   "Alt+C",
		HotkeyTogglePause: "Alt+P",

		DebounceMs:    120,
		MaxImageBytes: 50 * 1024 * 1024, // 50MB

		LogLevel:  "info",
		LogFormat: "auto",
	}
}

func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return default config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.validate()

	return config, nil
}

func (c *Config) Save(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) validate() {
	if c.MaxItems <= 0 {
		c.MaxItems = 200
	}
	if c.MaxItems > 10000 {
		c.MaxItems = 10000
	}
	if c.DebounceMs <= 0 {
		c.DebounceMs = 120
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 50 * 1024 * 1024
	}
	if c.HotkeyShowPanel == "" {
		c.HotkeyShowPanel = "Alt+C"
	}
	if c.HotkeyTogglePause == "" {
		c.HotkeyTogglePause = "Alt+P"
	}
}

// DefaultDir is the per-user directory for config, history database and
// favorites. Uses APPDATA on Windows, falling back to the home directory.
func DefaultDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "."+appDirName), nil
}

func DefaultConfigPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func DefaultDBPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func DefaultFavoritesPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "favorites.json"), nil
}
