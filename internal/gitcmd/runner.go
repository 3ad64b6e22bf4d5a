// Package gitcmd invokes the git binary and normalizes its output into the
// shapes the attribution engine consumes: blame record text, commit listings,
// and working-tree file lists. All commands run rooted at one repository.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// defaultTimeout bounds a single git invocation.
const defaultTimeout = 2 * time.Minute

// ErrGitCommand is returned when the git binary exits with an error.
var ErrGitCommand = errors.New("git command failed")

// Runner executes git commands in one repository working tree.
type Runner struct {
	dir            string
	timeout        time.Duration
	logger         *slog.Logger
	ignoreRevsPath string
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner rooted at the given repository directory.
func NewRunner(dir string, opts ...Option) *Runner {
	r := &Runner{
		dir:     dir,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Dir returns the repository directory the runner operates on.
func (r *Runner) Dir() string {
	return r.dir
}

// run executes git with the given arguments and returns stdout. A non-zero
// exit wraps ErrGitCommand with the captured stderr.
func (r *Runner) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.DebugContext(ctx, "running git", "args", args)

	err := cmd.Run()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}

		return nil, fmt.Errorf("%w: git %s: %s", ErrGitCommand, args[0], detail)
	}

	return stdout.Bytes(), nil
}

// runText executes git and returns stdout with surrounding whitespace trimmed.
func (r *Runner) runText(ctx context.Context, args ...string) (string, error) {
	out, err := r.run(ctx, args...)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// IsShallow reports whether the repository is a shallow clone.
func (r *Runner) IsShallow(ctx context.Context) (bool, error) {
	out, err := r.runText(ctx, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, err
	}

	return out == "true", nil
}

// CurrentBranch returns the abbreviated name of the checked-out branch, or
// "HEAD" when detached.
func (r *Runner) CurrentBranch(ctx context.Context) (string, error) {
	return r.runText(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// ResolveCommit expands a commit reference or abbreviated hash to the full
// hash.
func (r *Runner) ResolveCommit(ctx context.Context, ref string) (string, error) {
	return r.runText(ctx, "rev-parse", ref+"^{commit}")
}

// LsFiles returns all tracked paths, slash-separated, relative to the
// repository root.
func (r *Runner) LsFiles(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "ls-files", "-z")
	if err != nil {
		return nil, err
	}

	var paths []string

	for _, p := range strings.Split(string(out), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}

	return paths, nil
}

// ShowBlob returns the raw contents of path at the given revision.
func (r *Runner) ShowBlob(ctx context.Context, rev, path string) ([]byte, error) {
	return r.run(ctx, "show", rev+":"+path)
}
