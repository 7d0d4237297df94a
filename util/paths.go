package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppConfigDir = ".config/" + Name

	// ConfigDirEnv moves the config directory away from the home directory
	ConfigDirEnv = "FANOUT_CONFIG_DIR"
)

// GetConfigDir returns the directory holding config.yaml and the database,
// creating it when missing. FANOUT_CONFIG_DIR wins over ~/.config/fanout.
func GetConfigDir() (string, error) {
	configDir := os.Getenv(ConfigDirEnv)
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, AppConfigDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// ResolveFilePath prefers an existing file in the working directory, then
// the config directory. When neither exists the config directory path is
// returned so the file gets created there.
func ResolveFilePath(filename string) string {
	if fileExists(filename) {
		return filename
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return filename
	}
	return filepath.Join(configDir, filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
