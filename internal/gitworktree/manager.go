// Package gitworktree implements the Git Worktree Manager (C5): one
// isolated worktree and branch per workflow, created off the repository's
// default branch and torn down once a workflow completes or is cancelled.
//
// Branch naming and the git plumbing invocations are generalized from the
// teacher's pkg/harness/git/manager.go (single-worktree git helper) and
// cross-grounded on the agency example's worktree.go, which shows the
// `git worktree add -b <branch> <path> <parent>` shape and porcelain-aware
// error handling this package follows.
package gitworktree

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"aura/internal/aerr"
	"aura/internal/gateway"
)

// Manager creates and tears down per-workflow worktrees inside one parent
// git repository.
type Manager struct {
	gw *gateway.Gateway
}

// New builds a Manager that issues git/gh commands through gw.
func New(gw *gateway.Gateway) *Manager {
	return &Manager{gw: gw}
}

// Worktree describes one checked-out workflow worktree.
type Worktree struct {
	Branch string
	Path   string
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// BranchName derives a stable branch name from a workflow title and id,
// slugifying the title the way the teacher's git manager does for commit
// messages and branch suffixes.
func BranchName(prefix, title, shortID string) string {
	slug := slugify(title)
	if slug == "" {
		slug = "workflow"
	}
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return fmt.Sprintf("%s/%s-%s", prefix, slug, shortID)
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Create adds a new worktree at path, checking out branch inside repoRoot.
// If branch already exists (e.g. it survived a prior partial Execute that
// failed after worktree creation but before completion), it's reused via
// `worktree add <path> <branch>`; otherwise a fresh branch is forked from
// parentBranch via `worktree add -b <branch> <path> <parent>`.
func (m *Manager) Create(ctx context.Context, repoRoot, branch, path, parentBranch string) (*Worktree, error) {
	exists, err := m.branchExists(ctx, repoRoot, branch)
	if err != nil {
		return nil, fmt.Errorf("gitworktree: check branch %s: %w", branch, err)
	}

	args := []string{"-C", repoRoot, "worktree", "add"}
	if exists {
		args = append(args, path, branch)
	} else {
		args = append(args, "-b", branch, path, parentBranch)
	}
	if _, err := m.gw.Run(ctx, "git", args, gateway.RunOptions{}); err != nil {
		return nil, fmt.Errorf("gitworktree: create %s: %w", branch, err)
	}
	return &Worktree{Branch: branch, Path: path}, nil
}

// branchExists reports whether branch is a local ref in repoRoot.
func (m *Manager) branchExists(ctx context.Context, repoRoot, branch string) (bool, error) {
	args := []string{"-C", repoRoot, "show-ref", "--verify", "--quiet", "refs/heads/" + branch}
	if _, err := m.gw.Run(ctx, "git", args, gateway.RunOptions{}); err != nil {
		if errors.Is(err, aerr.ErrNonzeroExit) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes a worktree and its branch. force passes --force to git
// worktree remove, needed when the worktree has unclean state the workflow
// is abandoning (e.g. a Cancelled workflow); the branch is always deleted
// with branch -D.
func (m *Manager) Remove(ctx context.Context, repoRoot string, wt *Worktree, force bool) error {
	args := []string{"-C", repoRoot, "worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, wt.Path)
	if _, err := m.gw.Run(ctx, "git", args, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: remove %s: %w", wt.Path, err)
	}

	branchArgs := []string{"-C", repoRoot, "branch", "-D", wt.Branch}
	if _, err := m.gw.Run(ctx, "git", branchArgs, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: delete branch %s: %w", wt.Branch, err)
	}
	return nil
}

// List enumerates worktrees of repoRoot via `git worktree list --porcelain`.
func (m *Manager) List(ctx context.Context, repoRoot string) ([]Worktree, error) {
	res, err := m.gw.Run(ctx, "git", []string{"-C", repoRoot, "worktree", "list", "--porcelain"}, gateway.RunOptions{})
	if err != nil {
		return nil, fmt.Errorf("gitworktree: list: %w", err)
	}
	return parsePorcelain(res.Stdout), nil
}

func parsePorcelain(out string) []Worktree {
	var list []Worktree
	var cur Worktree
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if cur.Path != "" {
				list = append(list, cur)
			}
			cur = Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			cur.Branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	if cur.Path != "" {
		list = append(list, cur)
	}
	return list
}

// Status runs `git status --porcelain` inside the worktree.
func (m *Manager) Status(ctx context.Context, wt *Worktree) (string, error) {
	res, err := m.gw.Run(ctx, "git", []string{"-C", wt.Path, "status", "--porcelain"}, gateway.RunOptions{})
	if err != nil {
		return "", fmt.Errorf("gitworktree: status: %w", err)
	}
	return res.Stdout, nil
}

// Commit stages everything and commits inside the worktree.
func (m *Manager) Commit(ctx context.Context, wt *Worktree, message string) error {
	if _, err := m.gw.Run(ctx, "git", []string{"-C", wt.Path, "add", "-A"}, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: stage: %w", err)
	}
	if _, err := m.gw.Run(ctx, "git", []string{"-C", wt.Path, "commit", "-m", message}, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: commit: %w", err)
	}
	return nil
}

// Push pushes wt's branch to origin, injecting token into the remote URL
// as an x-access-token credential rather than relying on ambient git
// credential storage, so no token material ever lands in .git/config.
func (m *Manager) Push(ctx context.Context, wt *Worktree, remoteURL, token string) error {
	authed := injectToken(remoteURL, token)
	args := []string{"-C", wt.Path, "push", authed, fmt.Sprintf("HEAD:refs/heads/%s", wt.Branch)}
	if _, err := m.gw.Run(ctx, "git", args, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: push: %w", err)
	}
	return nil
}

func injectToken(remoteURL, token string) string {
	if token == "" {
		return remoteURL
	}
	if strings.HasPrefix(remoteURL, "https://") {
		return "https://x-access-token:" + token + "@" + strings.TrimPrefix(remoteURL, "https://")
	}
	return remoteURL
}

// SquashHistory rewrites wt's branch history onto a single commit, used by
// complete(workflow) before opening a pull request.
func (m *Manager) SquashHistory(ctx context.Context, wt *Worktree, parentBranch, message string) error {
	base := fmt.Sprintf("%s...HEAD", parentBranch)
	if _, err := m.gw.Run(ctx, "git", []string{"-C", wt.Path, "reset", "--soft", strings.Split(base, "...")[0]}, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: squash reset: %w", err)
	}
	if _, err := m.gw.Run(ctx, "git", []string{"-C", wt.Path, "commit", "-m", message}, gateway.RunOptions{}); err != nil {
		return fmt.Errorf("gitworktree: squash commit: %w", err)
	}
	return nil
}

// OpenPullRequest opens a draft pull request by shelling out to the gh CLI,
// grounded on the same Process Gateway indirection the rest of this package
// uses for git. gh runs inside the worktree and resolves the repository from
// its remotes; repoRoot is not passed to gh.
func (m *Manager) OpenPullRequest(ctx context.Context, wt *Worktree, repoRoot, title, body, base string) (string, error) {
	args := []string{"pr", "create", "--draft", "--head", wt.Branch, "--base", base, "--title", title, "--body", body}
	res, err := m.gw.Run(ctx, "gh", args, gateway.RunOptions{Dir: wt.Path})
	if err != nil {
		return "", fmt.Errorf("gitworktree: open pull request: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// EnsureSafeDirectory adds path to git's global safe.directory list, which
// clears the "detected dubious ownership" failure git raises for worktrees
// created by a different uid than the one running the agent process. It
// runs no other git command and retries nothing; no operation in this
// package calls it when a command fails.
func (m *Manager) EnsureSafeDirectory(ctx context.Context, path string) error {
	_, err := m.gw.Run(ctx, "git", []string{"config", "--global", "--add", "safe.directory", path}, gateway.RunOptions{})
	return err
}
