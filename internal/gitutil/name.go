// Package gitutil provides git helpers around the clone supervisor:
// repository name derivation, remote default-branch detection, and
// post-clone verification.
package gitutil

import "strings"

// RepoDirName returns the directory name git clone creates for a URL:
// the last path segment with any ".git" suffix stripped. Handles both
// https and scp-like (git@host:owner/repo.git) addresses.
func RepoDirName(url string) string {
	name := strings.TrimSuffix(url, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}
