package domain

import "time"

// CloneTask identifies one clone attempt. Immutable after creation.
type CloneTask struct {
	// Name is the logical task name used in messages and logs (e.g., "ESP-IDF").
	Name string
	// RepoURL is the source repository address.
	RepoURL string
	// Branch is the branch or ref to check out.
	Branch string
	// GitPath is the path to the git binary. Empty means "git" on PATH.
	GitPath string
	// WorkDir is the install directory the clone runs in; git creates
	// the repository directory underneath it.
	WorkDir string
}

// Git returns the git binary to invoke for this task.
func (t CloneTask) Git() string {
	if t.GitPath != "" {
		return t.GitPath
	}
	return "git"
}

// ProgressKind distinguishes percent-style updates from free-text detail lines.
type ProgressKind int

const (
	// ProgressPercent carries a percent-like token such as "99%".
	ProgressPercent ProgressKind = iota
	// ProgressDetail carries a free-text status line such as "Cloning into '...'".
	ProgressDetail
)

// ProgressUpdate is a derived, ephemeral progress value. It is forwarded to
// the ProgressSink immediately and then discarded, never persisted.
type ProgressUpdate struct {
	Kind    ProgressKind
	Message string
	// Percent is the raw percent token (e.g., "55%") for ProgressPercent
	// updates, empty otherwise. It is not parsed further.
	Percent string
}

// CloneResult describes a verified, completed clone.
type CloneResult struct {
	Path       string    `json:"path"`
	Branch     string    `json:"branch"`
	Commit     string    `json:"commit"`
	FinishedAt time.Time `json:"finished_at"`
}
