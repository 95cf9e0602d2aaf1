package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))

	// Repeated calls are a no-op.
	assert.NoError(t, EnsureDir(dir))
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, PathExists(file))
	assert.True(t, PathExists(dir))
	assert.False(t, PathExists(filepath.Join(dir, "missing")))
}

func TestIsWritable(t *testing.T) {
	assert.True(t, IsWritable(t.TempDir()))
	assert.False(t, IsWritable(filepath.Join(t.TempDir(), "missing")))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde only", "~", home},
		{"tilde prefix", "~/esp", filepath.Join(home, "esp")},
		{"absolute untouched", "/tmp/work", "/tmp/work"},
		{"relative untouched", "work", "work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}
