package config

import "time"

// Config represents the application configuration
type Config struct {
	Git     GitConfig     `mapstructure:"git" yaml:"git"`
	Install InstallConfig `mapstructure:"install" yaml:"install"`
	Detect  DetectConfig  `mapstructure:"detect" yaml:"detect"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// GitConfig contains git binary settings
type GitConfig struct {
	// Path to the git binary; defaults to "git" on PATH.
	Path string `mapstructure:"path" yaml:"path"`
	// Branch to clone when none is given and remote detection fails.
	FallbackBranch string `mapstructure:"fallback_branch" yaml:"fallback_branch"`
}

// InstallConfig contains install directory settings
type InstallConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// DetectConfig contains remote default-branch detection settings
type DetectConfig struct {
	MaxRetries      uint64        `mapstructure:"max_retries" yaml:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration and applies defaults for invalid
// values
func (c *Config) Validate() error {
	if c.Git.Path == "" {
		c.Git.Path = DefaultGitPath
	}
	if c.Git.FallbackBranch == "" {
		c.Git.FallbackBranch = DefaultFallbackBranch
	}
	if c.Install.Directory == "" {
		c.Install.Directory = DefaultInstallDir
	}
	if c.Detect.MaxRetries == 0 {
		c.Detect.MaxRetries = DefaultDetectRetries
	}
	if c.Detect.InitialInterval < 100*time.Millisecond {
		c.Detect.InitialInterval = DefaultDetectInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	return nil
}
