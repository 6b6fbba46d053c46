// Package gitx wraps the local git binary for the pipeline: branch handling,
// diff retrieval, staged commit+push, and pull-request submission. Every
// operation shells out with a bounded timeout and the working directory
// pinned to the project root; non-zero exits surface the captured stderr.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ankittk/taskpilot/internal/convention"
	"github.com/ankittk/taskpilot/pkg/models"
)

// CommandTimeout bounds a single git invocation. Test commands get their own,
// much longer budget elsewhere.
const CommandTimeout = 30 * time.Second

// ConventionSource renders naming conventions for a workspace. Satisfied by
// *convention.Manager; nil means built-in defaults.
type ConventionSource interface {
	Render(ctx context.Context, workspaceID string, rc convention.RenderContext) models.RenderedConvention
}

// Adapter runs git commands in a fixed project root.
type Adapter struct {
	Dir         string
	Conventions ConventionSource
	// Username feeds the {username} convention placeholder when set.
	Username string
	// BaseBranch overrides default-branch detection when set, typically from
	// the project's .taskpilot.yaml.
	BaseBranch string
}

// New returns an adapter rooted at dir.
func New(dir string, conventions ConventionSource) *Adapter {
	return &Adapter{Dir: dir, Conventions: conventions}
}

// run executes git with the given argument vector. No shell interpolation:
// task titles and branch names are passed as discrete argv entries.
func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = a.Dir
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, stderr)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo reports whether Dir is inside a git work tree.
func (a *Adapter) IsRepo(ctx context.Context) bool {
	out, err := a.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the checked-out branch name.
func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	return a.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// HasUncommittedChanges reports whether the work tree or index is dirty,
// including untracked files.
func (a *Adapter) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := a.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

func (a *Adapter) render(ctx context.Context, workspaceID string, rc convention.RenderContext) models.RenderedConvention {
	if rc.Username == "" {
		rc.Username = a.Username
	}
	if a.Conventions != nil && workspaceID != "" {
		return a.Conventions.Render(ctx, workspaceID, rc)
	}
	return convention.Render(convention.DefaultConfig(), rc)
}

// CreateTaskBranch checks out the convention-named branch for the task,
// creating it when absent. Switching to an existing branch is a valid
// outcome, not an error.
func (a *Adapter) CreateTaskBranch(ctx context.Context, taskID, title, workspaceID, taskType string) (string, error) {
	rendered := a.render(ctx, workspaceID, convention.RenderContext{
		TaskTitle: title, TaskID: taskID, TaskType: taskType,
	})
	branch := rendered.BranchName

	if _, err := a.run(ctx, "rev-parse", "--verify", "refs/heads/"+branch); err == nil {
		if _, err := a.run(ctx, "checkout", branch); err != nil {
			return "", err
		}
		return branch, nil
	}
	if _, err := a.run(ctx, "checkout", "-b", branch); err != nil {
		return "", err
	}
	return branch, nil
}

// DiffSummary returns a best-effort human-readable stat summary of staged,
// unstaged, and untracked changes. Returns an explanatory string rather than
// failing when nothing is found.
func (a *Adapter) DiffSummary(ctx context.Context) string {
	var parts []string
	if staged, err := a.run(ctx, "diff", "--cached", "--stat"); err == nil && staged != "" {
		parts = append(parts, "Staged changes:\n"+staged)
	}
	if unstaged, err := a.run(ctx, "diff", "--stat"); err == nil && unstaged != "" {
		parts = append(parts, "Unstaged changes:\n"+unstaged)
	}
	if untracked, err := a.run(ctx, "ls-files", "--others", "--exclude-standard"); err == nil && untracked != "" {
		parts = append(parts, "Untracked files:\n"+untracked)
	}
	if len(parts) == 0 {
		return "No local changes detected."
	}
	return strings.Join(parts, "\n\n")
}

// FullDiff diffs against the default branch when possible, otherwise the
// union of staged and unstaged changes. Never returns an error; total
// failure yields an empty string.
func (a *Adapter) FullDiff(ctx context.Context) string {
	if base, err := a.DefaultBranch(ctx); err == nil {
		if diff, err := a.run(ctx, "diff", base+"...HEAD"); err == nil && diff != "" {
			return diff
		}
	}
	staged, _ := a.run(ctx, "diff", "--cached")
	unstaged, _ := a.run(ctx, "diff")
	switch {
	case staged != "" && unstaged != "":
		return staged + "\n" + unstaged
	case staged != "":
		return staged
	default:
		return unstaged
	}
}

// ChangedFiles lists files changed relative to the default branch plus any
// staged, unstaged, or untracked paths, deduplicated.
func (a *Adapter) ChangedFiles(ctx context.Context) []string {
	seen := make(map[string]bool)
	collect := func(out string) {
		for _, line := range strings.Split(out, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				seen[line] = true
			}
		}
	}
	if base, err := a.DefaultBranch(ctx); err == nil {
		if out, err := a.run(ctx, "diff", "--name-only", base+"...HEAD"); err == nil {
			collect(out)
		}
	}
	if out, err := a.run(ctx, "diff", "--cached", "--name-only"); err == nil {
		collect(out)
	}
	if out, err := a.run(ctx, "diff", "--name-only"); err == nil {
		collect(out)
	}
	if out, err := a.run(ctx, "ls-files", "--others", "--exclude-standard"); err == nil {
		collect(out)
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// CommitAndPush stages everything, commits with the given message (rendered
// from conventions when empty), and pushes. The first push sets upstream
// tracking; subsequent pushes fall back to a plain push.
func (a *Adapter) CommitAndPush(ctx context.Context, taskID, title, message, workspaceID, taskType string) (branch, shortHash string, err error) {
	if message == "" {
		rendered := a.render(ctx, workspaceID, convention.RenderContext{
			TaskTitle: title, TaskID: taskID, TaskType: taskType,
		})
		message = rendered.CommitMessage
	}
	if _, err := a.run(ctx, "add", "-A"); err != nil {
		return "", "", err
	}
	if _, err := a.run(ctx, "commit", "-m", message); err != nil {
		return "", "", err
	}
	branch, err = a.CurrentBranch(ctx)
	if err != nil {
		return "", "", err
	}
	if _, err := a.run(ctx, "push", "-u", "origin", branch); err != nil {
		clog.FromContext(ctx).With("branch", branch).With("error", err).
			Debug("push -u failed, retrying plain push")
		if _, err := a.run(ctx, "push"); err != nil {
			return "", "", err
		}
	}
	shortHash, err = a.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", "", err
	}
	return branch, shortHash, nil
}

// DefaultBranch returns the remote's advertised HEAD branch, probing for
// main and then master when the remote does not advertise one.
func (a *Adapter) DefaultBranch(ctx context.Context) (string, error) {
	if a.BaseBranch != "" {
		return a.BaseBranch, nil
	}
	if out, err := a.run(ctx, "symbolic-ref", "refs/remotes/origin/HEAD", "--short"); err == nil {
		return strings.TrimPrefix(out, "origin/"), nil
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := a.run(ctx, "rev-parse", "--verify", "refs/heads/"+candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not determine default branch")
}
