package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults
// Uses the global viper instance to access CLI flag bindings
func Load() (*Config, error) {
	cfg, _, err := load(viper.GetViper())
	return cfg, err
}

// LoadWithViper loads configuration on a fresh viper instance and returns
// it alongside the config; useful for isolated stores in tests.
func LoadWithViper() (*Config, *viper.Viper, error) {
	cfg, v, err := load(viper.New())
	return cfg, v, err
}

func load(v *viper.Viper) (*Config, *viper.Viper, error) {
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
	}

	// Environment variables (REPOFETCH_*)
	v.SetEnvPrefix("REPOFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}
