// Package state implements the merge engine's persisted, crash-safe state
// file and its sibling per-repository PID lock.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mergerstool/mergers/internal/config"
	"github.com/mergerstool/mergers/internal/errors"
)

// hashPrefixLen is the number of hex characters of the canonical repo
// path's SHA-256 digest used to name per-repository files.
const hashPrefixLen = 16

// RepoHash returns a stable, filename-safe identifier for repoPath: the
// first 16 hex characters of the SHA-256 digest of its canonicalised
// (symlink-resolved, absolute) form. Equal canonical paths always hash to
// the same value; distinct canonical paths are vanishingly unlikely to
// collide.
func RepoHash(repoPath string) (string, error) {
	canonical, err := canonicalize(repoPath)
	if err != nil {
		return "", errors.NewStateError("canonicalize repository path", err, errors.ExitGeneralError).
			WithStateFile(repoPath)
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:hashPrefixLen], nil
}

func canonicalize(repoPath string) (string, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The repo directory may not exist yet on first `run` (clone mode
		// creates it); fall back to the absolute, non-symlink-resolved
		// form rather than failing.
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}
	return resolved, nil
}

// Paths holds the derived state-file and lock-file paths for one repository.
type Paths struct {
	StateFile string
	LockFile  string
}

// ResolvePaths derives the state-file and lock-file paths for repoPath,
// creating the state directory if necessary.
func ResolvePaths(repoPath string) (Paths, error) {
	dir, err := config.StateDir()
	if err != nil {
		return Paths{}, errors.NewStateError("resolve state directory", err, errors.ExitGeneralError)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, errors.NewStateError("create state directory", err, errors.ExitGeneralError).
			WithStateFile(dir)
	}
	hash, err := RepoHash(repoPath)
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		StateFile: filepath.Join(dir, fmt.Sprintf("merge-%s.json", hash)),
		LockFile:  filepath.Join(dir, fmt.Sprintf("merge-%s.lock", hash)),
	}, nil
}
