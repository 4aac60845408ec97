package app

import (
	"fmt"
	"os"
	"path/filepath"

	"vt-go/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - VT_CONFIG_PATH: config file location (default: ~/.config/vt.toml)
//   - VT_HOME: base directory for vt data (default: ~/.local/share/vt)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// LoadConfig reads the config file at path, fills defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("VT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "vt.toml"), nil
}

// getBaseDir returns the base directory for vt data, checking VT_HOME first,
// then falling back to the XDG default ~/.local/share/vt.
func getBaseDir() (string, error) {
	if path := os.Getenv("VT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "vt"), nil
}
