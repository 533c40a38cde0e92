// Package gittest builds throwaway Git repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// InitRepo creates a temp directory with an initialized Git repository
// and a configured test identity. The directory is cleaned up with the
// test.
func InitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	Run(t, dir, "init")
	Run(t, dir, "config", "user.email", "test@relkit.local")
	Run(t, dir, "config", "user.name", "Relkit Test")

	return dir
}

// Run executes a git command in the given repository and fails the test
// on error
func Run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
	return string(out)
}

// WriteFile writes a file under the repository root, creating parent
// directories as needed
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// CommitAll stages everything and commits with the given message
func CommitAll(t *testing.T, dir, message string) {
	t.Helper()
	Run(t, dir, "add", "-A")
	Run(t, dir, "commit", "-m", message)
}
