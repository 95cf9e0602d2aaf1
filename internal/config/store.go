package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Store persists configuration parameters through viper. It implements
// domain.ParameterStore; the orchestration layer records the final install
// path, branch and commit through it after a successful clone.
type Store struct {
	v    *viper.Viper
	path string
}

// NewStore creates a Store writing to the given config file path. An empty
// path means the default config file location.
func NewStore(v *viper.Viper, path string) *Store {
	if path == "" {
		path = ConfigFilePath()
	}
	return &Store{v: v, path: path}
}

// Get returns the value for key, or "" if unset.
func (s *Store) Get(key string) string {
	return s.v.GetString(key)
}

// Set records a value for key. The value is not durable until Save.
func (s *Store) Set(key string, value any) {
	s.v.Set(key, value)
}

// Save flushes recorded values to the config file, creating its directory
// if needed.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return s.v.WriteConfigAs(s.path)
}
