package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrToolUnavailable indicates the git binary cannot be located.
	ErrToolUnavailable = errors.New("git binary not found")

	// ErrCloneInProgress indicates a clone is already running on this runner.
	ErrCloneInProgress = errors.New("clone already in progress")

	// ErrDestinationExists indicates the clone destination already exists.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrNoDestination indicates no install directory could be resolved.
	ErrNoDestination = errors.New("no install directory selected")

	// ErrVerifyFailed indicates the cloned repository failed post-clone
	// verification.
	ErrVerifyFailed = errors.New("clone verification failed")
)

// CloneError represents a failed clone attempt. ExitCode is -1 when the
// failure did not come from process exit (spawn failure, error marker in
// the output stream).
type CloneError struct {
	Task     string
	ExitCode int
	Output   string
	Err      error
}

func (e *CloneError) Error() string {
	switch {
	case e.ExitCode >= 0:
		return fmt.Sprintf("cloning %s failed with exit code %d", e.Task, e.ExitCode)
	case e.Output != "":
		return fmt.Sprintf("cloning %s failed: %s", e.Task, e.Output)
	default:
		return fmt.Sprintf("cloning %s failed: %v", e.Task, e.Err)
	}
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// NewExitError creates a CloneError for a non-zero process exit.
func NewExitError(task string, exitCode int) *CloneError {
	return &CloneError{Task: task, ExitCode: exitCode}
}

// NewOutputError creates a CloneError for an error marker observed in the
// subprocess output. The raw diagnostic text is carried verbatim.
func NewOutputError(task, output string) *CloneError {
	return &CloneError{Task: task, ExitCode: -1, Output: output}
}

// NewSpawnError creates a CloneError for an OS-level failure to start the
// subprocess.
func NewSpawnError(task string, err error) *CloneError {
	return &CloneError{Task: task, ExitCode: -1, Err: err}
}

// ConflictError reports a destination that already exists.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination %s already exists", e.Path)
}

func (e *ConflictError) Unwrap() error {
	return ErrDestinationExists
}

// NewConflictError creates a ConflictError for the given path.
func NewConflictError(path string) *ConflictError {
	return &ConflictError{Path: path}
}
