package domain

import "context"

// ProgressSink receives human-readable progress text during a clone.
// Implementations must not block and must not panic; Report may be called
// zero or more times per clone and never after the completion channel has
// been resolved.
type ProgressSink interface {
	// Report forwards a progress message. For percent updates detail holds
	// the raw percent token; for free-text updates it is empty.
	Report(message, detail string)
}

// DirectorySelector resolves the install directory for a clone. The CLI
// supplies a flag-based implementation; a GUI host could supply a picker.
type DirectorySelector interface {
	// Select returns the install directory, or an error if none could be
	// resolved.
	Select(ctx context.Context) (string, error)
}

// Notifier surfaces user-visible messages. Calls are fire-and-forget;
// failures are ignored by callers.
type Notifier interface {
	// Info reports an informational message.
	Info(message string)
	// Error reports a failure with its underlying error.
	Error(message string, err error)
}

// ParameterStore persists configuration parameters across runs.
type ParameterStore interface {
	// Get returns the value for key, or "" if unset.
	Get(key string) string
	// Set records a value for key.
	Set(key string, value any)
	// Save flushes recorded values to durable storage.
	Save() error
}
