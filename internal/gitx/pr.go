package gitx

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/ankittk/taskpilot/internal/convention"
)

// Recognized GitHub remote forms: git@github.com:owner/repo.git and
// https://github.com/owner/repo(.git).
var remotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^git@github\.com:([^/]+)/(.+?)(?:\.git)?$`),
	regexp.MustCompile(`^https?://github\.com/([^/]+)/(.+?)(?:\.git)?/?$`),
	regexp.MustCompile(`^ssh://git@github\.com/([^/]+)/(.+?)(?:\.git)?$`),
}

// ParseRemote extracts (owner, repo) from a GitHub remote URL.
func ParseRemote(remoteURL string) (owner, repo string, err error) {
	remoteURL = strings.TrimSpace(remoteURL)
	for _, pat := range remotePatterns {
		if m := pat.FindStringSubmatch(remoteURL); m != nil {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("unrecognized remote url %q", remoteURL)
}

// RemoteOwnerRepo inspects origin and returns the parsed owner/repo pair.
func (a *Adapter) RemoteOwnerRepo(ctx context.Context) (owner, repo string, err error) {
	remote, err := a.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", "", err
	}
	return ParseRemote(remote)
}

// CompareURL builds a browser-openable GitHub compare URL with the title and
// body pre-filled. Purely local; always succeeds once owner/repo are known.
func CompareURL(owner, repo, base, branch, title, body string) string {
	q := url.Values{}
	q.Set("expand", "1")
	if title != "" {
		q.Set("title", title)
	}
	if body != "" {
		q.Set("body", body)
	}
	return fmt.Sprintf("https://github.com/%s/%s/compare/%s...%s?%s",
		owner, repo, base, branch, q.Encode())
}

// ghRunner is swapped out in tests; production runs the gh CLI.
var ghRunner = func(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		return "", fmt.Errorf("gh %s: %w: %s", args[0], err, stderr)
	}
	return strings.TrimSpace(string(out)), nil
}

// CreatePullRequest opens a PR for the current branch. It tries the gh CLI
// first and degrades to a compare URL when the CLI is absent or fails. The
// returned URL is either the created PR or the pre-filled compare page.
func (a *Adapter) CreatePullRequest(ctx context.Context, taskID, title, description, customBody, workspaceID, taskType string) (string, error) {
	owner, repo, err := a.RemoteOwnerRepo(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve remote: %w", err)
	}

	rendered := a.render(ctx, workspaceID, convention.RenderContext{
		TaskTitle: title, TaskID: taskID, TaskType: taskType,
	})
	body := customBody
	if body == "" {
		body = description
	}

	branch, err := a.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	base := a.BaseBranch
	if base == "" {
		base = rendered.BaseBranch
	}
	if base == "" {
		base = "main"
	}

	prURL, ghErr := ghRunner(ctx, a.Dir,
		"pr", "create",
		"--title", rendered.PRTitle,
		"--body", body,
		"--base", base,
		"--head", branch,
	)
	if ghErr == nil && prURL != "" {
		return prURL, nil
	}
	clog.FromContext(ctx).With("error", ghErr).
		Warn("gh pr create failed, falling back to compare URL")
	return CompareURL(owner, repo, base, branch, rendered.PRTitle, body), nil
}
