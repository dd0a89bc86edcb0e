// ABOUTME: Terminal UI preferences loaded from an XDG TOML file
// ABOUTME: Purely cosmetic settings; a missing file falls back to defaults

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// UIConfig holds terminal presentation preferences.
type UIConfig struct {
	Prompt    string `toml:"prompt"`
	Color     bool   `toml:"color"`
	ToolCalls bool   `toml:"tool_calls"`
	// ExportDir is where /export writes when given a bare filename.
	ExportDir string `toml:"export_dir"`
}

func defaultUIConfig() UIConfig {
	return UIConfig{
		Prompt:    "> ",
		Color:     true,
		ToolCalls: true,
	}
}

// uiConfigPath resolves the XDG location of the UI preferences file.
func uiConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "agentui", "ui.toml"), nil
}

// loadUIConfig reads the UI preferences. A missing file is not an error;
// defaults apply.
func loadUIConfig() (UIConfig, error) {
	cfg := defaultUIConfig()

	path, err := uiConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading ui config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing ui config: %w", err)
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "> "
	}
	return cfg, nil
}
