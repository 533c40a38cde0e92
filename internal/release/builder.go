// Package release cuts a single addressable release: version bump, build
// artifact, content hash, and annotated tag, in that fixed order. Every
// step is a hard gate; the first failure aborts the rest. Partial state
// (e.g. version written but build failed) is deliberately left on disk
// for operator inspection rather than rolled back.
package release

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dyluth/relkit/internal/config"
	"github.com/dyluth/relkit/internal/gitx"
	"github.com/dyluth/relkit/internal/manifest"
	"github.com/google/uuid"
)

// ErrDeclined is returned when the operator declines the dirty-tree
// confirmation. It is a clean abort, not a gate failure.
var ErrDeclined = errors.New("release declined by operator")

// Builder runs the release pipeline against one working-tree root
type Builder struct {
	Root string
	Cfg  *config.Config
	Git  *gitx.Checker

	// Confirm asks the operator a yes/no question. nil means always yes
	// (non-interactive use).
	Confirm func(prompt string) (bool, error)

	// BuildOutput receives the build tool's stdout and stderr.
	// nil discards it.
	BuildOutput io.Writer

	// Step reports progress before each gate. nil disables reporting.
	Step func(format string, a ...any)
}

// Result describes a completed release
type Result struct {
	Version      string
	RunID        string
	ArtifactPath string
	SHA256       string
	Tag          string
}

// New creates a builder for the given root and configuration
func New(root string, cfg *config.Config) *Builder {
	return &Builder{
		Root: root,
		Cfg:  cfg,
		Git:  gitx.NewChecker(root),
	}
}

func (b *Builder) step(format string, a ...any) {
	if b.Step != nil {
		b.Step(format, a...)
	}
}

// Run executes the release pipeline for the given version.
// The version must be non-empty; beyond that any token is accepted.
func (b *Builder) Run(version string) (*Result, error) {
	if version == "" {
		return nil, fmt.Errorf("version must not be empty\n\nUsage: relkit release VERSION")
	}

	runID := uuid.New().String()

	// Gate 1: manifest precondition
	manifestPath := filepath.Join(b.Root, b.Cfg.Manifest)
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("%s not found\n\nReleases must be cut from the project root (the directory containing %s).", b.Cfg.Manifest, b.Cfg.Manifest)
	}

	// Gate 2: dirty-tree confirmation
	clean, err := b.Git.IsWorkspaceClean()
	if err != nil {
		return nil, err
	}
	if !clean && b.Confirm != nil {
		dirty, err := b.Git.DirtyFiles()
		if err != nil {
			return nil, err
		}
		ok, err := b.Confirm(fmt.Sprintf("Working tree has uncommitted changes:\n%s\n\nRelease anyway?", dirty))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDeclined
		}
	}

	// Gate 3: version write
	b.step("Setting version %s in %s", version, b.Cfg.Manifest)
	if err := manifest.WriteVersion(manifestPath, version); err != nil {
		return nil, err
	}

	// Gate 4: build
	b.step("Building %s", b.Cfg.Package)
	if err := b.runBuild(); err != nil {
		return nil, err
	}

	// Gate 5: artifact existence
	artifactRel := b.Cfg.ArtifactPath(version)
	artifactPath := filepath.Join(b.Root, artifactRel)
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, fmt.Errorf("expected artifact %s not found after build\n\nThe build step reported success but did not produce the artifact.\nCheck the build tool's output and the package name in the configuration.", artifactRel)
	}

	// Gate 6: content hash
	b.step("Hashing %s", artifactRel)
	digest, err := hashFile(artifactPath)
	if err != nil {
		return nil, err
	}

	// Gate 7: commit and tag
	tag := "v" + version
	b.step("Committing and tagging %s", tag)
	if err := b.Git.Stage(b.Cfg.Manifest); err != nil {
		return nil, err
	}
	if err := b.Git.Commit(fmt.Sprintf("Release %s", tag)); err != nil {
		return nil, err
	}
	if err := b.Git.CreateAnnotatedTag(tag, fmt.Sprintf("Release %s (run %s)", tag, runID)); err != nil {
		return nil, err
	}

	return &Result{
		Version:      version,
		RunID:        runID,
		ArtifactPath: artifactRel,
		SHA256:       digest,
		Tag:          tag,
	}, nil
}

// runBuild invokes the configured build command, propagating failure
func (b *Builder) runBuild() error {
	command := b.Cfg.BuildCommand
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = b.Root
	if b.BuildOutput != nil {
		cmd.Stdout = b.BuildOutput
		cmd.Stderr = b.BuildOutput
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}

// hashFile computes the SHA-256 digest of a file's bytes as a hex string
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
