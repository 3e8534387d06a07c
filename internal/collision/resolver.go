// Package collision decides the final destination path when the desired path
// is already taken, per the configured duplicate policy.
package collision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Policy selects how an occupied destination path is handled.
type Policy string

const (
	// PolicyRename keeps both files, suffixing the incoming one.
	PolicyRename Policy = "rename"
	// PolicySkip leaves the source file where it is.
	PolicySkip Policy = "skip"
	// PolicyOverwrite replaces the existing file. The replaced file is not
	// recorded and cannot be restored by undo.
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy validates a policy string, defaulting empty input to rename.
func ParsePolicy(raw string) (Policy, error) {
	policy := Policy(strings.ToLower(strings.TrimSpace(raw)))
	if policy == "" {
		policy = PolicyRename
	}
	switch policy {
	case PolicyRename, PolicySkip, PolicyOverwrite:
		return policy, nil
	default:
		return "", fmt.Errorf("invalid collision policy %q (allowed: rename, skip, overwrite)", raw)
	}
}

// ErrSkip signals that the destination exists and the skip policy elected not
// to move the file. No filesystem mutation may follow.
var ErrSkip = errors.New("destination occupied, skipping")

const maxRenameAttempts = 10000

// Resolver finalizes destination paths for one run. It remembers every path it
// hands out so that two files renamed within the same run cannot collide with
// each other before the first one lands on disk. Not safe for concurrent use.
type Resolver struct {
	policy  Policy
	claimed map[string]struct{}
}

// NewResolver builds a resolver for a single run.
func NewResolver(policy Policy) *Resolver {
	return &Resolver{
		policy:  policy,
		claimed: make(map[string]struct{}),
	}
}

// Resolve maps the desired path to the final path per the policy. It returns
// ErrSkip under the skip policy when the path is occupied.
func (r *Resolver) Resolve(desired string) (string, error) {
	if !r.occupied(desired) {
		r.claimed[desired] = struct{}{}
		return desired, nil
	}

	switch r.policy {
	case PolicySkip:
		return "", ErrSkip
	case PolicyOverwrite:
		r.claimed[desired] = struct{}{}
		return desired, nil
	default:
		return r.nextFree(desired)
	}
}

// occupied reports whether the path exists on disk or was already claimed by
// an earlier decision in this run.
func (r *Resolver) occupied(path string) bool {
	if _, claimed := r.claimed[path]; claimed {
		return true
	}
	_, err := os.Lstat(path)
	return err == nil
}

func (r *Resolver) nextFree(desired string) (string, error) {
	ext := filepath.Ext(desired)
	stem := strings.TrimSuffix(filepath.Base(desired), ext)
	dir := filepath.Dir(desired)

	for n := 1; n <= maxRenameAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if !r.occupied(candidate) {
			r.claimed[candidate] = struct{}{}
			return candidate, nil
		}
	}
	return "", fmt.Errorf("exhausted rename candidates for %s", desired)
}
