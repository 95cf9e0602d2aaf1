package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quantmind-br/repofetch-go/internal/config"
	"github.com/quantmind-br/repofetch-go/internal/domain"
	"github.com/quantmind-br/repofetch-go/tests/mocks"
)

// fakeRunner is a controllable CloneRunner.
type fakeRunner struct {
	startErr  error
	result    error
	block     bool
	started   bool
	cancelled bool
	lastTask  domain.CloneTask
	done      chan error
}

func (f *fakeRunner) Start(task domain.CloneTask) (<-chan error, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = true
	f.lastTask = task
	f.done = make(chan error, 1)
	if !f.block {
		f.done <- f.result
		close(f.done)
	}
	return f.done, nil
}

func (f *fakeRunner) Cancel() {
	f.cancelled = true
	if f.done != nil {
		close(f.done)
	}
}

// fakeResolver is a controllable BranchResolver.
type fakeResolver struct {
	branch string
	err    error
}

func (f *fakeResolver) Detect(ctx context.Context, url string) (string, error) {
	return f.branch, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	_ = cfg.Validate()
	return cfg
}

func testTask(workDir string) domain.CloneTask {
	return domain.CloneTask{
		Name:    "ESP-IDF",
		RepoURL: "https://example/repo.git",
		Branch:  "release/v5.0",
		WorkDir: workDir,
	}
}

func newOrchestrator(t *testing.T, opts OrchestratorOptions) *Orchestrator {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	if opts.Detector == nil {
		opts.Detector = &fakeResolver{branch: "main"}
	}
	o, err := NewOrchestrator(opts)
	require.NoError(t, err)
	o.lookPath = func(file string) (string, error) { return "/usr/bin/git", nil }
	o.verify = func(path, branch string) (*domain.CloneResult, error) {
		return &domain.CloneResult{Path: path, Branch: branch, Commit: "abc123", FinishedAt: time.Now()}, nil
	}
	return o
}

func TestNewOrchestratorRequiredOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)

	tests := []struct {
		name string
		opts OrchestratorOptions
	}{
		{"missing config", OrchestratorOptions{Runner: &fakeRunner{}, Store: store}},
		{"missing runner", OrchestratorOptions{Config: testConfig(), Store: store}},
		{"missing store", OrchestratorOptions{Config: testConfig(), Runner: &fakeRunner{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrchestrator(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestRunSuccessPersistsResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	fr := &fakeRunner{}

	workDir := t.TempDir()
	dest := filepath.Join(workDir, "repo")

	store.EXPECT().Set(config.KeyInstallPath, dest)
	store.EXPECT().Set(config.KeyInstallBranch, "release/v5.0")
	store.EXPECT().Set(config.KeyInstallCommit, "abc123")
	store.EXPECT().Save().Return(nil)
	notifier.EXPECT().Info(gomock.Any())

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Notifier: notifier})

	result, err := o.Run(context.Background(), testTask(workDir))

	require.NoError(t, err)
	assert.Equal(t, dest, result.Path)
	assert.Equal(t, "abc123", result.Commit)
	assert.True(t, fr.started)
}

func TestRunToolUnavailableNeverSpawns(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	fr := &fakeRunner{}

	notifier.EXPECT().Error(gomock.Any(), gomock.Any())

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Notifier: notifier})
	o.lookPath = func(file string) (string, error) { return "", errors.New("not found") }

	_, err := o.Run(context.Background(), testTask(t.TempDir()))

	assert.ErrorIs(t, err, domain.ErrToolUnavailable)
	assert.False(t, fr.started, "no process may be spawned when the tool is missing")
}

func TestRunRefusesExistingDestination(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	fr := &fakeRunner{}

	workDir := t.TempDir()
	dest := filepath.Join(workDir, "repo")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	notifier.EXPECT().Error(gomock.Any(), gomock.Any())

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Notifier: notifier})

	_, err := o.Run(context.Background(), testTask(workDir))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDestinationExists)
	assert.Contains(t, err.Error(), dest)
	assert.False(t, fr.started, "no process may be spawned on a destination conflict")
}

func TestRunCloneFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	cloneErr := domain.NewExitError("ESP-IDF", 7)
	fr := &fakeRunner{result: cloneErr}

	notifier.EXPECT().Error(gomock.Any(), cloneErr)

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Notifier: notifier})

	_, err := o.Run(context.Background(), testTask(t.TempDir()))

	assert.Equal(t, cloneErr, err)
}

func TestRunCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	fr := &fakeRunner{block: true}

	notifier.EXPECT().Info(gomock.Any())

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Notifier: notifier})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := o.Run(ctx, testTask(t.TempDir()))

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, fr.cancelled, "cancellation must be forwarded to the runner")
}

func TestRunUsesDirectorySelector(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	selector := mocks.NewMockDirectorySelector(ctrl)
	fr := &fakeRunner{}

	workDir := t.TempDir()
	selector.EXPECT().Select(gomock.Any()).Return(workDir, nil)
	store.EXPECT().Set(gomock.Any(), gomock.Any()).Times(3)
	store.EXPECT().Save().Return(nil)

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Selector: selector})

	task := testTask("")
	result, err := o.Run(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "repo"), result.Path)
	assert.Equal(t, workDir, fr.lastTask.WorkDir)
}

func TestRunSelectorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	selector := mocks.NewMockDirectorySelector(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	fr := &fakeRunner{}

	selector.EXPECT().Select(gomock.Any()).Return("", nil)
	notifier.EXPECT().Error(gomock.Any(), gomock.Any())

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store, Selector: selector, Notifier: notifier})

	_, err := o.Run(context.Background(), testTask(""))

	assert.ErrorIs(t, err, domain.ErrNoDestination)
	assert.False(t, fr.started)
}

func TestRunBranchDetection(t *testing.T) {
	t.Run("detected branch is used", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockParameterStore(ctrl)
		fr := &fakeRunner{}
		store.EXPECT().Set(gomock.Any(), gomock.Any()).Times(3)
		store.EXPECT().Save().Return(nil)

		o := newOrchestrator(t, OrchestratorOptions{
			Runner:   fr,
			Store:    store,
			Detector: &fakeResolver{branch: "develop"},
		})

		task := testTask(t.TempDir())
		task.Branch = ""
		_, err := o.Run(context.Background(), task)

		require.NoError(t, err)
		assert.Equal(t, "develop", fr.lastTask.Branch)
	})

	t.Run("fallback branch on detection failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockParameterStore(ctrl)
		fr := &fakeRunner{}
		store.EXPECT().Set(gomock.Any(), gomock.Any()).Times(3)
		store.EXPECT().Save().Return(nil)

		o := newOrchestrator(t, OrchestratorOptions{
			Runner:   fr,
			Store:    store,
			Detector: &fakeResolver{err: errors.New("remote unreachable")},
		})

		task := testTask(t.TempDir())
		task.Branch = ""
		_, err := o.Run(context.Background(), task)

		require.NoError(t, err)
		assert.Equal(t, config.DefaultFallbackBranch, fr.lastTask.Branch)
	})
}

func TestRunSaveFailureDoesNotFailClone(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockParameterStore(ctrl)
	fr := &fakeRunner{}

	store.EXPECT().Set(gomock.Any(), gomock.Any()).Times(3)
	store.EXPECT().Save().Return(errors.New("disk full"))

	o := newOrchestrator(t, OrchestratorOptions{Runner: fr, Store: store})

	result, err := o.Run(context.Background(), testTask(t.TempDir()))

	require.NoError(t, err)
	assert.NotNil(t, result)
}
