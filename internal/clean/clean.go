// Package clean removes a declared set of obsolete paths from the
// working tree and normalizes the ignore rules. The candidate set comes
// from configuration, not code, so the exact deletion set is auditable
// before anything is removed. Deletion is irreversible; confirmation is
// the command layer's responsibility.
package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/relkit/internal/config"
)

// Kind distinguishes directory candidates from file candidates
type Kind string

const (
	KindDir  Kind = "dir"
	KindFile Kind = "file"
)

// Candidate is one existing path scheduled for deletion
type Candidate struct {
	Path string
	Kind Kind
}

// CheckPrecondition verifies the root looks like the project this tool
// was configured for. Refusing to run elsewhere guards against deleting
// same-named paths in an unrelated tree.
func CheckPrecondition(root string, cfg *config.Config) error {
	manifestPath := filepath.Join(root, cfg.Manifest)
	if _, err := os.Stat(manifestPath); err != nil {
		return fmt.Errorf("%s not found\n\nThe cleaner must run from the project root (the directory containing %s).", cfg.Manifest, cfg.Manifest)
	}
	return nil
}

// Plan enumerates the configured obsolete paths that actually exist, in
// configuration order. Absent paths are skipped, which makes repeated
// runs no-ops once the tree is clean.
func Plan(root string, cfg *config.Config) ([]Candidate, error) {
	var candidates []Candidate

	for _, dir := range cfg.Clean.Dirs {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is listed as a directory but is a file; fix the clean configuration", dir)
		}
		candidates = append(candidates, Candidate{Path: dir, Kind: KindDir})
	}

	for _, file := range cfg.Clean.Files {
		info, err := os.Stat(filepath.Join(root, file))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", file, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is listed as a file but is a directory; fix the clean configuration", file)
		}
		candidates = append(candidates, Candidate{Path: file, Kind: KindFile})
	}

	return candidates, nil
}

// Apply deletes every candidate and returns the deleted paths.
// Directories are removed recursively.
func Apply(root string, candidates []Candidate) ([]string, error) {
	var deleted []string
	for _, candidate := range candidates {
		target := filepath.Join(root, candidate.Path)
		var err error
		if candidate.Kind == KindDir {
			err = os.RemoveAll(target)
		} else {
			err = os.Remove(target)
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", candidate.Path, err)
		}
		deleted = append(deleted, candidate.Path)
	}
	return deleted, nil
}

// EnsureIgnoreRules appends each missing entry to the ignore-rules file,
// creating the file if needed. Entries already present are left alone so
// repeated runs never duplicate them. Returns the entries added.
func EnsureIgnoreRules(root, ignoreFile string, entries []string) ([]string, error) {
	path := filepath.Join(root, ignoreFile)

	existing := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", ignoreFile, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range entries {
		if !existing[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", ignoreFile, err)
	}
	return missing, nil
}
