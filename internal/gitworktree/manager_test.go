package gitworktree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"aura/internal/gateway"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gw := gateway.New()
	ctx := context.Background()
	run := func(args ...string) {
		_, err := gw.Run(ctx, "git", append([]string{"-C", dir}, args...), gateway.RunOptions{})
		require.NoError(t, err)
	}
	run("init", "-b", "main")
	run("config", "user.email", "aura@example.com")
	run("config", "user.name", "aura")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))
	run("add", "-A")
	run("commit", "-m", "initial")
	return dir
}

func TestBranchNameSlugifies(t *testing.T) {
	name := BranchName("aura", "Fix Login Bug #42!", "ab12cd34")
	require.Equal(t, "aura/fix-login-bug-42-ab12cd34", name)
}

func TestCreateAndRemoveWorktree(t *testing.T) {
	repo := initRepo(t)
	mgr := New(gateway.New())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "wt")
	wt, err := mgr.Create(ctx, repo, "aura/test-1", path, "main")
	require.NoError(t, err)
	require.DirExists(t, path)

	list, err := mgr.List(ctx, repo)
	require.NoError(t, err)
	require.Len(t, list, 2) // main checkout + new worktree

	require.NoError(t, mgr.Remove(ctx, repo, wt, true))
}

func TestCommitAndStatus(t *testing.T) {
	repo := initRepo(t)
	mgr := New(gateway.New())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "wt")
	wt, err := mgr.Create(ctx, repo, "aura/test-2", path, "main")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "new.txt"), []byte("data"), 0o644))

	status, err := mgr.Status(ctx, wt)
	require.NoError(t, err)
	require.Contains(t, status, "new.txt")

	require.NoError(t, mgr.Commit(ctx, wt, "add new.txt"))

	status, err = mgr.Status(ctx, wt)
	require.NoError(t, err)
	require.Empty(t, status)
}

func TestCreateReusesExistingBranch(t *testing.T) {
	repo := initRepo(t)
	mgr := New(gateway.New())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "wt")
	wt, err := mgr.Create(ctx, repo, "aura/retry-1", path, "main")
	require.NoError(t, err)
	// Remove only the worktree, leaving the branch behind the way a partial
	// Execute that failed after creating it would.
	_, err = gateway.New().Run(ctx, "git", []string{"-C", repo, "worktree", "remove", "--force", wt.Path}, gateway.RunOptions{})
	require.NoError(t, err)

	// The branch survived the worktree removal; a retried Create for the
	// same branch must reuse it via `worktree add <path> <branch>` rather
	// than failing with "branch already exists" on a second `-b`.
	reused, err := mgr.Create(ctx, repo, "aura/retry-1", path, "main")
	require.NoError(t, err)
	require.Equal(t, "aura/retry-1", reused.Branch)
	require.DirExists(t, path)
}
