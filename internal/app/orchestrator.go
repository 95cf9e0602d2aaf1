// Package app wires the clone runner to its collaborators: directory
// selection, tool availability, configuration persistence and user
// notification.
package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/quantmind-br/repofetch-go/internal/config"
	"github.com/quantmind-br/repofetch-go/internal/domain"
	"github.com/quantmind-br/repofetch-go/internal/gitutil"
	"github.com/quantmind-br/repofetch-go/internal/utils"
)

// CloneRunner is the contract the orchestrator needs from the process
// runner. Satisfied by *runner.Runner.
type CloneRunner interface {
	Start(task domain.CloneTask) (<-chan error, error)
	Cancel()
}

// BranchResolver resolves the default branch of a remote repository.
// Satisfied by *gitutil.BranchDetector.
type BranchResolver interface {
	Detect(ctx context.Context, url string) (string, error)
}

// Orchestrator sequences one clone attempt end to end: destination
// resolution, tool check, conflict check, supervision, persistence.
type Orchestrator struct {
	cfg      *config.Config
	logger   *utils.Logger
	runner   CloneRunner
	detector BranchResolver
	selector domain.DirectorySelector
	store    domain.ParameterStore
	notifier domain.Notifier

	// Test seams, defaulting to the real implementations.
	lookPath func(file string) (string, error)
	verify   func(path, branch string) (*domain.CloneResult, error)
}

// OrchestratorOptions contains options for creating an Orchestrator.
// Config, Runner and Store are required; the rest defaults to no-op or
// real implementations.
type OrchestratorOptions struct {
	Config   *config.Config
	Logger   *utils.Logger
	Runner   CloneRunner
	Detector BranchResolver
	Selector domain.DirectorySelector
	Store    domain.ParameterStore
	Notifier domain.Notifier
}

// NewOrchestrator creates a new orchestrator with the given options.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	detector := opts.Detector
	if detector == nil {
		detector = gitutil.NewBranchDetector(gitutil.BranchDetectorOptions{
			GitPath:         opts.Config.Git.Path,
			Logger:          logger,
			MaxRetries:      opts.Config.Detect.MaxRetries,
			InitialInterval: opts.Config.Detect.InitialInterval,
		})
	}

	return &Orchestrator{
		cfg:      opts.Config,
		logger:   logger.WithComponent("orchestrator"),
		runner:   opts.Runner,
		detector: detector,
		selector: opts.Selector,
		store:    opts.Store,
		notifier: notifier,
		lookPath: exec.LookPath,
		verify:   gitutil.Verify,
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) Info(message string)             {}
func (nopNotifier) Error(message string, err error) {}

// Run performs one clone attempt for task. Cancellation of ctx forcefully
// terminates the subprocess tree and returns ctx.Err(); all other failure
// paths return a classified error after logging and notifying. Run never
// panics on subprocess failures.
func (o *Orchestrator) Run(ctx context.Context, task domain.CloneTask) (*domain.CloneResult, error) {
	log := o.logger.WithTask(task.Name)

	workDir, err := o.resolveWorkDir(ctx, task)
	if err != nil {
		o.notifier.Error("could not resolve install directory", err)
		return nil, err
	}
	task.WorkDir = workDir

	// Fail fast when the git binary is not resolvable; no process is
	// spawned in that case.
	if _, err := o.lookPath(task.Git()); err != nil {
		err = fmt.Errorf("%w: %q", domain.ErrToolUnavailable, task.Git())
		log.Error().Err(err).Msg("tool check failed")
		o.notifier.Error("git is not installed or not on PATH", err)
		return nil, err
	}

	// Refuse to clone over an existing destination.
	dest := filepath.Join(workDir, gitutil.RepoDirName(task.RepoURL))
	if utils.PathExists(dest) {
		err := domain.NewConflictError(dest)
		log.Error().Str("dest", dest).Msg("destination already exists")
		o.notifier.Error("destination already exists", err)
		return nil, err
	}

	if task.Branch == "" {
		task.Branch = o.resolveBranch(ctx, task.RepoURL)
	}

	done, err := o.runner.Start(task)
	if err != nil {
		o.notifier.Error("could not start clone", err)
		return nil, err
	}

	select {
	case <-ctx.Done():
		o.runner.Cancel()
		log.Info().Msg("clone aborted by caller")
		o.notifier.Info(fmt.Sprintf("cloning %s aborted", task.Name))
		return nil, ctx.Err()

	case err, ok := <-done:
		if !ok {
			// Closed without resolution: the runner was cancelled from
			// elsewhere. Report as aborted, not failed.
			return nil, context.Canceled
		}
		if err != nil {
			log.Error().Err(err).Msg("clone failed")
			o.notifier.Error(fmt.Sprintf("cloning %s failed", task.Name), err)
			return nil, err
		}
	}

	result, err := o.verify(dest, task.Branch)
	if err != nil {
		log.Error().Err(err).Msg("post-clone verification failed")
		o.notifier.Error("clone finished but verification failed", err)
		return nil, err
	}

	o.store.Set(config.KeyInstallPath, result.Path)
	o.store.Set(config.KeyInstallBranch, result.Branch)
	o.store.Set(config.KeyInstallCommit, result.Commit)
	if err := o.store.Save(); err != nil {
		// The clone itself succeeded; report but do not fail the attempt.
		log.Warn().Err(err).Msg("failed to persist install parameters")
	}

	log.Info().Str("path", result.Path).Str("commit", result.Commit).Msg("clone completed")
	o.notifier.Info(fmt.Sprintf("%s installed at %s", task.Name, result.Path))
	return result, nil
}

// Cancel forwards an external cancellation request to the runner.
func (o *Orchestrator) Cancel() {
	o.runner.Cancel()
}

func (o *Orchestrator) resolveWorkDir(ctx context.Context, task domain.CloneTask) (string, error) {
	if task.WorkDir != "" {
		return utils.ExpandPath(task.WorkDir), nil
	}
	if o.selector != nil {
		dir, err := o.selector.Select(ctx)
		if err != nil {
			return "", err
		}
		if dir == "" {
			return "", domain.ErrNoDestination
		}
		return utils.ExpandPath(dir), nil
	}
	if o.cfg.Install.Directory != "" {
		return utils.ExpandPath(o.cfg.Install.Directory), nil
	}
	return "", domain.ErrNoDestination
}

// resolveBranch asks the remote for its default branch, falling back to
// the configured branch when detection fails.
func (o *Orchestrator) resolveBranch(ctx context.Context, url string) string {
	branch, err := o.detector.Detect(ctx, url)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			o.logger.Warn().Err(err).Str("repo", url).Msg("default branch detection failed, using fallback")
		}
		return o.cfg.Git.FallbackBranch
	}
	return branch
}
