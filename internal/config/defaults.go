package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Default values
const (
	// Git defaults
	DefaultGitPath        = "git"
	DefaultFallbackBranch = "master"

	// Install defaults
	DefaultInstallDir = "."

	// Detection defaults
	DefaultDetectRetries  = 3
	DefaultDetectInterval = 1 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// Persisted parameter keys, written through the parameter store after a
// successful clone.
const (
	KeyInstallPath   = "install.path"
	KeyInstallBranch = "install.branch"
	KeyInstallCommit = "install.commit"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repofetch"
	}
	return filepath.Join(home, ".repofetch")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// setDefaults registers defaults on a viper instance
func setDefaults(v *viper.Viper) {
	v.SetDefault("git.path", DefaultGitPath)
	v.SetDefault("git.fallback_branch", DefaultFallbackBranch)
	v.SetDefault("install.directory", DefaultInstallDir)
	v.SetDefault("detect.max_retries", DefaultDetectRetries)
	v.SetDefault("detect.initial_interval", DefaultDetectInterval)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
