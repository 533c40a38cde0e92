package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "obsidian-notes-agent", cfg.Package)
	assert.Equal(t, "pyproject.toml", cfg.Manifest)
	assert.Equal(t, ".env", cfg.SecretsFile)
	assert.Equal(t, "sk-ant-", cfg.Scan.KeyPrefix)
	assert.NotEmpty(t, cfg.Clean.Dirs)
	assert.NotEmpty(t, cfg.Scan.Rules)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	override := `package: examplepkg
manifest: Cargo.toml
build_command: ["make", "dist"]
clean:
  files:
    - legacy.sh
`
	require.NoError(t, os.WriteFile(configPath, []byte(override), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "examplepkg", cfg.Package)
	assert.Equal(t, "Cargo.toml", cfg.Manifest)
	assert.Equal(t, []string{"make", "dist"}, cfg.BuildCommand)
	assert.Equal(t, []string{"legacy.sh"}, cfg.Clean.Files)

	// Fields absent from the file keep their defaults
	assert.Equal(t, ".env", cfg.SecretsFile)
	assert.Equal(t, "sk-ant-", cfg.Scan.KeyPrefix)
	assert.NotEmpty(t, cfg.Scan.Rules)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/relkit.yml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("package: [unclosed\n"), 0644))

	cfg, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidRulePattern(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	bad := `scan:
  rules:
    - name: broken
      pattern: "(["
`
	require.NoError(t, os.WriteFile(configPath, []byte(bad), 0644))

	cfg, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestValidate_DuplicateRuleNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Rules = append(cfg.Scan.Rules, RuleConfig{Name: "password-assignment", Pattern: "x"})

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scan rule")
}

func TestValidate_EmptyPackage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Package = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("no config file returns defaults", func(t *testing.T) {
		cfg, err := LoadOrDefault(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "obsidian-notes-agent", cfg.Package)
	})

	t.Run("config file is loaded when present", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("package: examplepkg\n"), 0644))

		cfg, err := LoadOrDefault(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, "examplepkg", cfg.Package)
	})
}

func TestArtifactPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Package = "examplepkg"
	assert.Equal(t, filepath.Join("dist", "examplepkg-0.1.0.tar.gz"), cfg.ArtifactPath("0.1.0"))

	// Dashes normalize to underscores like Python sdist archives
	cfg.Package = "obsidian-notes-agent"
	assert.Equal(t, filepath.Join("dist", "obsidian_notes_agent-1.0.0.tar.gz"), cfg.ArtifactPath("1.0.0"))
}
