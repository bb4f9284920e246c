package config

import (
	"os"
	"path/filepath"
)

const appName = "wristguard"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath returns the default YAML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.yaml")
}

// DefaultDBPath returns the default path for the alert journal.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultPluginDir returns the default directory searched for plugins.
func DefaultPluginDir() string {
	return filepath.Join(XDGConfigHome(), appName, "plugins")
}
