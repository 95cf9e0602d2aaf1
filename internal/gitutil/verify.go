package gitutil

import (
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/quantmind-br/repofetch-go/internal/domain"
)

// Verify opens the cloned repository at path and confirms it has a valid
// HEAD on the expected branch. wantBranch may be empty when the branch was
// not pinned; the checked-out branch is then reported as-is.
func Verify(path, wantBranch string) (*domain.CloneResult, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrVerifyFailed, path, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: reading HEAD: %v", domain.ErrVerifyFailed, err)
	}

	branch := ""
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	if wantBranch != "" && branch != "" && branch != wantBranch {
		return nil, fmt.Errorf("%w: checked out %q, expected %q", domain.ErrVerifyFailed, branch, wantBranch)
	}

	return &domain.CloneResult{
		Path:       path,
		Branch:     branch,
		Commit:     head.Hash().String(),
		FinishedAt: time.Now(),
	}, nil
}
