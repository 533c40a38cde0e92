// Package manifest reads and rewrites the version marker held in the
// package manifest file. The marker is a single TOML-style assignment
// (`version = "x.y.z"`); everything else in the file is preserved
// byte-for-byte on rewrite.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var versionLine = regexp.MustCompile(`^(\s*version\s*=\s*)"([^"]*)"(.*)$`)

// ReadVersion returns the version token from the first version assignment
// in the manifest file
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if m := versionLine.FindStringSubmatch(line); m != nil {
			return m[2], nil
		}
	}
	return "", fmt.Errorf("no version line found in %s", path)
}

// WriteVersion replaces the version token in the first version assignment,
// leaving every other line untouched. Fails if no version line exists.
func WriteVersion(path, version string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat manifest: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	replaced := false
	for i, line := range lines {
		if m := versionLine.FindStringSubmatch(line); m != nil {
			lines[i] = fmt.Sprintf(`%s"%s"%s`, m[1], version, m[3])
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("no version line found in %s", path)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode()); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
