package gitutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/quantmind-br/repofetch-go/internal/utils"
)

// BranchDetector resolves the default branch of a remote repository via
// `git ls-remote --symref <url> HEAD`, retrying transient failures with
// exponential backoff. The clone itself is never retried; only this cheap
// metadata query is.
type BranchDetector struct {
	gitPath         string
	logger          *utils.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// BranchDetectorOptions contains options for creating a BranchDetector.
type BranchDetectorOptions struct {
	GitPath         string
	Logger          *utils.Logger
	MaxRetries      uint64
	InitialInterval time.Duration
}

// NewBranchDetector creates a BranchDetector with the given options.
func NewBranchDetector(opts BranchDetectorOptions) *BranchDetector {
	gitPath := opts.GitPath
	if gitPath == "" {
		gitPath = "git"
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	interval := opts.InitialInterval
	if interval <= 0 {
		interval = 1 * time.Second
	}
	return &BranchDetector{
		gitPath:         gitPath,
		logger:          logger.WithComponent("branch-detector"),
		maxRetries:      maxRetries,
		initialInterval: interval,
	}
}

// Detect returns the default branch name for url.
func (d *BranchDetector) Detect(ctx context.Context, url string) (string, error) {
	var branch string

	operation := func() error {
		out, err := exec.CommandContext(ctx, d.gitPath, "ls-remote", "--symref", url, "HEAD").Output()
		if err != nil {
			var execErr *exec.Error
			if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
				// Binary missing; retrying cannot help.
				return backoff.Permanent(fmt.Errorf("git ls-remote: %w", err))
			}
			d.logger.Warn().Err(err).Str("repo", url).Msg("ls-remote failed, retrying")
			return fmt.Errorf("git ls-remote: %w", err)
		}

		b, err := parseSymref(string(out))
		if err != nil {
			return backoff.Permanent(err)
		}
		branch = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(d.initialInterval), d.maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	d.logger.Debug().Str("repo", url).Str("branch", branch).Msg("default branch detected")
	return branch, nil
}

func newExponentialBackOff(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	return b
}

// parseSymref extracts the branch name from ls-remote --symref output,
// e.g. "ref: refs/heads/main\tHEAD".
func parseSymref(out string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "ref: refs/heads/") {
			continue
		}
		fields := strings.Split(line, "\t")
		return strings.TrimPrefix(fields[0], "ref: refs/heads/"), nil
	}
	return "", errors.New("could not determine default branch")
}
