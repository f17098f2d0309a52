package state

import (
	"path/filepath"
	"testing"
)

func TestRepoHash_StableAndDistinct(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "repo-a")
	b := filepath.Join(dir, "repo-b")

	h1, err := RepoHash(a)
	if err != nil {
		t.Fatalf("RepoHash(a) error = %v", err)
	}
	h2, err := RepoHash(a)
	if err != nil {
		t.Fatalf("RepoHash(a) second call error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("RepoHash(a) not stable: %q != %q", h1, h2)
	}

	h3, err := RepoHash(b)
	if err != nil {
		t.Fatalf("RepoHash(b) error = %v", err)
	}
	if h1 == h3 {
		t.Errorf("RepoHash(a) == RepoHash(b) = %q, want distinct hashes", h1)
	}
	if len(h1) != hashPrefixLen {
		t.Errorf("RepoHash() length = %d, want %d", len(h1), hashPrefixLen)
	}
}

func TestResolvePaths(t *testing.T) {
	t.Setenv("MERGERS_STATE_DIR", t.TempDir())
	p, err := ResolvePaths("/tmp/some/repo")
	if err != nil {
		t.Fatalf("ResolvePaths() error = %v", err)
	}
	if filepath.Ext(p.StateFile) != ".json" {
		t.Errorf("StateFile = %q, want .json suffix", p.StateFile)
	}
	if filepath.Ext(p.LockFile) != ".lock" {
		t.Errorf("LockFile = %q, want .lock suffix", p.LockFile)
	}
}
