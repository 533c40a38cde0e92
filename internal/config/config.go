package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the optional per-project configuration file.
// When absent, DefaultConfig applies.
const ConfigFileName = "relkit.yml"

// Config is the top-level relkit.yml configuration
type Config struct {
	// Package is the distribution name used to derive artifact filenames
	Package string `yaml:"package"`

	// Manifest is the package manifest file carrying the version marker
	Manifest string `yaml:"manifest"`

	// BuildCommand produces the distributable artifact from the tree
	BuildCommand []string `yaml:"build_command"`

	// DistDir is where the build command writes artifacts
	DistDir string `yaml:"dist_dir"`

	// ArtifactExt is the artifact filename extension, including the dot
	ArtifactExt string `yaml:"artifact_ext"`

	// SecretsFile is the local environment-override file that must never
	// be committed
	SecretsFile string `yaml:"secrets_file"`

	// ExampleConfig is the checked-in template config that should contain
	// only placeholders
	ExampleConfig string `yaml:"example_config"`

	// IgnoreFile is the version-control ignore-rules file
	IgnoreFile string `yaml:"ignore_file"`

	Clean CleanConfig `yaml:"clean,omitempty"`
	Scan  ScanConfig  `yaml:"scan,omitempty"`
}

// CleanConfig enumerates the obsolete paths the cleaner removes and the
// ignore-rule entries it guarantees
type CleanConfig struct {
	Dirs          []string `yaml:"dirs,omitempty"`
	Files         []string `yaml:"files,omitempty"`
	IgnoreEntries []string `yaml:"ignore_entries,omitempty"`
}

// ScanConfig specifies the secret scanner's rule set
type ScanConfig struct {
	// KeyPrefix is the vendor credential-prefix signature; any occurrence
	// in a scanned file is a hard failure
	KeyPrefix string `yaml:"key_prefix"`

	// Extensions lists the source file types scanned for secrets
	Extensions []string `yaml:"extensions,omitempty"`

	// ExcludeDirs lists directory names skipped during the scan walk
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty"`

	// Rules are the generic key=value secret patterns; matches are
	// warnings requiring manual review, not hard failures
	Rules []RuleConfig `yaml:"rules,omitempty"`
}

// RuleConfig is one named secret-detection pattern
type RuleConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// DefaultConfig returns the built-in workflow configuration.
// The defaults describe the notes-agent project this tool was extracted
// from; relkit.yml overrides them per project.
func DefaultConfig() *Config {
	return &Config{
		Package:       "obsidian-notes-agent",
		Manifest:      "pyproject.toml",
		BuildCommand:  []string{"python", "-m", "build"},
		DistDir:       "dist",
		ArtifactExt:   ".tar.gz",
		SecretsFile:   ".env",
		ExampleConfig: ".env.example",
		IgnoreFile:    ".gitignore",
		Clean: CleanConfig{
			Dirs: []string{
				"notes_agent", // duplicated source tree superseded by the packaged layout
				"data",        // local vector-store data, never distributable
				".vscode",
			},
			Files: []string{
				"main.py", // old entrypoint replaced by the packaged CLI
				"test_agent.py",
				"USAGE.md",
				"INSTALL_NOTES.md",
			},
			IgnoreEntries: []string{
				".vscode/",
				".DS_Store",
			},
		},
		Scan: ScanConfig{
			KeyPrefix:   "sk-ant-",
			Extensions:  []string{".py", ".go", ".md", ".txt", ".toml", ".cfg", ".sh", ".yml", ".yaml"},
			ExcludeDirs: []string{".git", "dist", "data", ".venv", "venv", "node_modules"},
			Rules: []RuleConfig{
				{Name: "password-assignment", Pattern: `(?i)password\s*[=:]\s*["']?[A-Za-z0-9_\-./+]{8,}`},
				{Name: "api-key-assignment", Pattern: `(?i)api[_-]?key\s*[=:]\s*["']?[A-Za-z0-9_\-./+]{8,}`},
				{Name: "secret-assignment", Pattern: `(?i)secret\s*[=:]\s*["']?[A-Za-z0-9_\-./+]{8,}`},
				{Name: "token-assignment", Pattern: `(?i)token\s*[=:]\s*["']?[A-Za-z0-9_\-./+]{8,}`},
			},
		},
	}
}

// Load reads a relkit.yml from the given path, layered over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Unmarshal over the defaults so absent fields keep their built-in
	// values while present fields (including lists) replace them
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads <root>/relkit.yml when present, otherwise returns
// the built-in defaults
func LoadOrDefault(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return Load(path)
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Package == "" {
		return fmt.Errorf("package name must not be empty")
	}
	if c.Manifest == "" {
		return fmt.Errorf("manifest file must not be empty")
	}
	if len(c.BuildCommand) == 0 {
		return fmt.Errorf("build_command must not be empty")
	}
	if c.SecretsFile == "" {
		return fmt.Errorf("secrets_file must not be empty")
	}

	namesSeen := make(map[string]bool)
	for _, rule := range c.Scan.Rules {
		if rule.Name == "" {
			return fmt.Errorf("scan rule with pattern %q has no name", rule.Pattern)
		}
		if namesSeen[rule.Name] {
			return fmt.Errorf("duplicate scan rule name '%s'", rule.Name)
		}
		namesSeen[rule.Name] = true
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("scan rule '%s' has invalid pattern: %w", rule.Name, err)
		}
	}

	return nil
}

// ArtifactName returns the deterministic artifact filename for a version.
// Dashes in the package name are normalized to underscores, matching how
// Python sdist names distribution archives.
func (c *Config) ArtifactName(version string) string {
	normalized := strings.ReplaceAll(c.Package, "-", "_")
	return normalized + "-" + version + c.ArtifactExt
}

// ArtifactPath returns the artifact path relative to the tree root
func (c *Config) ArtifactPath(version string) string {
	return filepath.Join(c.DistDir, c.ArtifactName(version))
}
