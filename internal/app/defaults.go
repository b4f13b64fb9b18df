package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate dropmirror's files.
const (
	EnvConfigPath = "DROPMIRROR_CONFIG_PATH"
	EnvHome       = "DROPMIRROR_HOME"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DROPMIRROR_CONFIG_PATH: config file location (default: ~/.config/dropmirror.toml)
//   - DROPMIRROR_HOME: base directory for dropmirror data (default: ~/.local/share/dropmirror)
//
// output_dir is where runs are written unless the config says otherwise
// (default: ~/Downloads).
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"env_path":    filepath.Join(baseDir, ".env"),
		"output_dir":  filepath.Join(homeDir, "Downloads"),
	}, nil
}

// getConfigPath returns the config file path, checking DROPMIRROR_CONFIG_PATH first,
// then falling back to ~/.config/dropmirror.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dropmirror.toml"), nil
}

// getBaseDir returns the data directory, checking DROPMIRROR_HOME first,
// then falling back to the XDG default ~/.local/share/dropmirror.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dropmirror"), nil
}
