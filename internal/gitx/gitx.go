package gitx

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Checker provides Git repository validation and release operations,
// all executed against a single working-tree root.
type Checker struct {
	// Root is the directory git commands run in. Empty means the
	// current working directory.
	Root string
}

// NewChecker creates a Git checker for the given working-tree root
func NewChecker(root string) *Checker {
	return &Checker{Root: root}
}

func (c *Checker) command(args ...string) *exec.Cmd {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.Root
	return cmd
}

// IsGitRepository checks if the root is within a Git repository
func (c *Checker) IsGitRepository() (bool, error) {
	err := c.command("rev-parse", "--git-dir").Run()
	if err != nil {
		// Check if error is because git command not found
		if _, ok := err.(*exec.Error); ok {
			return false, fmt.Errorf("git not found in PATH\nrelkit requires Git to be installed.\nInstall Git: https://git-scm.com/downloads")
		}
		return false, nil
	}
	return true, nil
}

// RepoRoot returns the absolute path to the Git repository root
func (c *Checker) RepoRoot() (string, error) {
	output, err := c.command("rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get Git root: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ValidateRepoRoot validates that the checker's root is a Git repository
// and is the repository's top-level directory.
// Returns a user-friendly error if validation fails
func (c *Checker) ValidateRepoRoot() error {
	isRepo, err := c.IsGitRepository()
	if err != nil {
		return err
	}
	if !isRepo {
		return fmt.Errorf("not a Git repository\n\nrelkit must be run from within a Git repository.\n\nRun 'git init' first")
	}

	dir := c.Root
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	// git resolves symlinks in --show-toplevel; match that
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}

	repoRoot, err := c.RepoRoot()
	if err != nil {
		return err
	}

	if filepath.Clean(absDir) != filepath.Clean(repoRoot) {
		return fmt.Errorf("must run from Git repository root\n\nGit root: %s\nCurrent directory: %s\n\nPlease cd to the Git root and retry", repoRoot, absDir)
	}
	return nil
}

// IsWorkspaceClean returns true if the Git working directory has no uncommitted changes.
// This includes staged, unstaged, and untracked files.
func (c *Checker) IsWorkspaceClean() (bool, error) {
	output, err := c.command("status", "--porcelain").Output()
	if err != nil {
		return false, fmt.Errorf("failed to check Git status: %w", err)
	}
	return len(strings.TrimSpace(string(output))) == 0, nil
}

// DirtyFiles returns a formatted list of uncommitted changes for error messages.
// Returns empty string if workspace is clean.
func (c *Checker) DirtyFiles() (string, error) {
	output, err := c.command("status", "--porcelain").Output()
	if err != nil {
		return "", fmt.Errorf("failed to check Git status: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// TrackedFiles returns the relative paths of all files in the Git index
func (c *Checker) TrackedFiles() ([]string, error) {
	output, err := c.command("ls-files").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked files: %w", err)
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// IsTracked reports whether the given relative path is in the Git index
func (c *Checker) IsTracked(path string) (bool, error) {
	files, err := c.TrackedFiles()
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f == path || filepath.Base(f) == path {
			return true, nil
		}
	}
	return false, nil
}

// HistoryAddedFile returns the hashes of all commits, on any branch, that
// ever added a file with the given name. An empty result means the name
// never entered history.
func (c *Checker) HistoryAddedFile(name string) ([]string, error) {
	output, err := c.command("log", "--all", "--diff-filter=A", "--format=%H", "--", name).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to search Git history for %s: %w", name, err)
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// Stage adds the given path to the Git index
func (c *Checker) Stage(path string) error {
	if out, err := c.command("add", path).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to stage %s: %s: %w", path, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Commit creates a commit with the given message.
// "Nothing to commit" is tolerated as a no-op, since the staged content
// may already match HEAD (e.g. re-writing an identical version line).
func (c *Checker) Commit(message string) error {
	out, err := c.command("commit", "-m", message).CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "nothing to commit") ||
			strings.Contains(string(out), "nothing added to commit") {
			return nil
		}
		return fmt.Errorf("failed to commit: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// TagExists reports whether the given tag name already exists
func (c *Checker) TagExists(name string) (bool, error) {
	err := c.command("rev-parse", "--verify", "--quiet", "refs/tags/"+name).Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up tag %s: %w", name, err)
	}
	return true, nil
}

// CreateAnnotatedTag creates an annotated tag with the given message.
// Tags are immutable release markers: if the tag already exists the call
// fails rather than overwriting it.
func (c *Checker) CreateAnnotatedTag(name, message string) error {
	exists, err := c.TagExists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("tag '%s' already exists\n\nA release for this version was already cut.\nTags are immutable: pick a new version instead of re-releasing this one", name)
	}
	if out, err := c.command("tag", "-a", name, "-m", message).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create tag %s: %s: %w", name, strings.TrimSpace(string(out)), err)
	}
	return nil
}
