// Package gittest builds throwaway git repositories for tests that exercise
// real git output.
package gittest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()

	_, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git binary not available")
	}
}

// Repo is a temporary git repository rooted in the test's temp dir.
type Repo struct {
	// Dir is the repository working tree root.
	Dir string

	t *testing.T
}

// NewRepo initializes an empty repository with a deterministic identity and
// a main branch.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	RequireGit(t)

	r := &Repo{Dir: t.TempDir(), t: t}

	r.Git("init")
	r.Git("config", "user.name", "Fixture")
	r.Git("config", "user.email", "fixture@example.com")
	r.Git("config", "commit.gpgsign", "false")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")

	return r
}

// Git runs a git command in the repository and returns its combined output,
// failing the test on error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()

	return r.git(nil, args...)
}

func (r *Repo) git(extraEnv []string, args ...string) string {
	r.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), extraEnv...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %v: %v\n%s", args, err, out)
	}

	return string(out)
}

// WriteFile writes content to a path relative to the repository root,
// creating parent directories.
func (r *Repo) WriteFile(path, content string) {
	r.t.Helper()

	full := filepath.Join(r.Dir, filepath.FromSlash(path))

	err := os.MkdirAll(filepath.Dir(full), 0o755)
	if err != nil {
		r.t.Fatalf("mkdir for %s: %v", path, err)
	}

	err = os.WriteFile(full, []byte(content), 0o644)
	if err != nil {
		r.t.Fatalf("write %s: %v", path, err)
	}
}

// RemoveFile deletes a path relative to the repository root.
func (r *Repo) RemoveFile(path string) {
	r.t.Helper()

	err := os.Remove(filepath.Join(r.Dir, filepath.FromSlash(path)))
	if err != nil {
		r.t.Fatalf("remove %s: %v", path, err)
	}
}

// Commit stages everything and commits as the given author at the given
// time. Returns the full commit hash.
func (r *Repo) Commit(msg, authorName, authorEmail string, when time.Time) string {
	r.t.Helper()

	date := fmt.Sprintf("%d +0000", when.Unix())
	env := []string{
		"GIT_AUTHOR_NAME=" + authorName,
		"GIT_AUTHOR_EMAIL=" + authorEmail,
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_NAME=" + authorName,
		"GIT_COMMITTER_EMAIL=" + authorEmail,
		"GIT_COMMITTER_DATE=" + date,
	}

	r.git(nil, "add", "-A")
	r.git(env, "commit", "--allow-empty", "-m", msg)

	return r.Head()
}

// Head returns the full hash of HEAD.
func (r *Repo) Head() string {
	r.t.Helper()

	out := r.Git("rev-parse", "HEAD")

	return trimEOL(out)
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}

	return s
}
