package scan

import (
	"testing"

	"github.com/dyluth/relkit/internal/config"
	"github.com/dyluth/relkit/internal/gittest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanRepo builds a repo with no leaks: secrets file ignored, example
// config full of placeholders, innocuous source
func cleanRepo(t *testing.T) string {
	t.Helper()
	dir := gittest.InitRepo(t)
	gittest.WriteFile(t, dir, ".gitignore", ".env\ndist/\n")
	gittest.WriteFile(t, dir, ".env.example", "# copy to .env\nANTHROPIC_API_KEY=your-api-key-here\nOBSIDIAN_VAULT_PATH=/path/to/your/vault\n")
	gittest.WriteFile(t, dir, "notes.py", "def hello():\n    return 'world'\n")
	gittest.CommitAll(t, dir, "initial")
	return dir
}

func newScanner(t *testing.T, dir string) *Scanner {
	t.Helper()
	scanner, err := New(dir, config.DefaultConfig())
	require.NoError(t, err)
	return scanner
}

func TestRun_ZeroState(t *testing.T) {
	dir := cleanRepo(t)

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	assert.Equal(t, 0, report.Issues())
	assert.Len(t, report.Results, 6)
	for _, result := range report.Results {
		assert.Equal(t, StatusPass, result.Status, "check %s", result.Name)
	}
}

func TestRun_DetectsTrackedSecretsFile(t *testing.T) {
	dir := cleanRepo(t)

	// Track the secrets file despite the ignore rule
	gittest.WriteFile(t, dir, ".env", "ANTHROPIC_API_KEY=sk-ant-api03-realkey12345\n")
	gittest.Run(t, dir, "add", "-f", ".env")
	gittest.Run(t, dir, "commit", "-m", "leak")

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	// Tracked in the index and present in history: at least two failures
	assert.GreaterOrEqual(t, report.Issues(), 2)

	byName := make(map[string]CheckResult)
	for _, result := range report.Results {
		byName[result.Name] = result
	}
	assert.Equal(t, StatusFail, byName["index"].Status)
	assert.Contains(t, byName["index"].Detail, ".env")
	assert.Equal(t, StatusFail, byName["history"].Status)
}

func TestRun_DetectsHistoricalLeak(t *testing.T) {
	dir := cleanRepo(t)

	// Leak, then delete; the add stays in history
	gittest.WriteFile(t, dir, ".env", "secretvalue\n")
	gittest.Run(t, dir, "add", "-f", ".env")
	gittest.Run(t, dir, "commit", "-m", "oops")
	gittest.Run(t, dir, "rm", ".env")
	gittest.Run(t, dir, "commit", "-m", "remove")

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	byName := make(map[string]CheckResult)
	for _, result := range report.Results {
		byName[result.Name] = result
	}
	assert.Equal(t, StatusPass, byName["index"].Status, "deleted file is no longer tracked")
	assert.Equal(t, StatusFail, byName["history"].Status)
	assert.Contains(t, byName["history"].Detail, "history must be rewritten")
}

func TestRun_MissingIgnoreRule(t *testing.T) {
	dir := gittest.InitRepo(t)
	gittest.WriteFile(t, dir, ".gitignore", "dist/\n")
	gittest.WriteFile(t, dir, "notes.py", "pass\n")
	gittest.CommitAll(t, dir, "initial")

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	assert.Equal(t, 1, report.Issues())
	assert.Equal(t, StatusFail, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Detail, ".env is not listed")
}

func TestRun_KeyPrefixInSource(t *testing.T) {
	dir := cleanRepo(t)
	gittest.WriteFile(t, dir, "notes.py", "API_KEY = 'sk-ant-api03-abcdef'\n")

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.Issues(), 1)

	var keyPrefix CheckResult
	for _, result := range report.Results {
		if result.Name == "key-prefix" {
			keyPrefix = result
		}
	}
	assert.Equal(t, StatusFail, keyPrefix.Status)
	require.Len(t, keyPrefix.Findings, 1)
	assert.Equal(t, "notes.py", keyPrefix.Findings[0].Path)
	assert.Equal(t, 1, keyPrefix.Findings[0].Line)
}

func TestRun_GenericPatternsAreWarningsOnly(t *testing.T) {
	dir := cleanRepo(t)
	gittest.WriteFile(t, dir, "settings.py", "password = \"hunter2hunter2\"\n")

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	// Pattern matches require review but never block the release
	assert.Equal(t, 0, report.Issues())

	var patterns CheckResult
	for _, result := range report.Results {
		if result.Name == "patterns" {
			patterns = result
		}
	}
	assert.Equal(t, StatusWarn, patterns.Status)
	require.NotEmpty(t, patterns.Findings)
	assert.Equal(t, "password-assignment", patterns.Findings[0].Rule)
}

func TestRun_ExampleConfigWithConcreteValues(t *testing.T) {
	dir := cleanRepo(t)
	gittest.WriteFile(t, dir, ".env.example", "ANTHROPIC_API_KEY=sk-live-0123456789abcdef\n")

	report, err := newScanner(t, dir).Run()
	require.NoError(t, err)

	var example CheckResult
	for _, result := range report.Results {
		if result.Name == "example-config" {
			example = result
		}
	}
	assert.Equal(t, StatusWarn, example.Status)
	require.Len(t, example.Findings, 1)
	assert.Equal(t, 1, example.Findings[0].Line)
}

func TestRuleEvaluate(t *testing.T) {
	rules, err := CompileRules(config.DefaultConfig().Scan.Rules)
	require.NoError(t, err)

	var tokenRule Rule
	for _, rule := range rules {
		if rule.Name == "token-assignment" {
			tokenRule = rule
		}
	}
	require.NotNil(t, tokenRule.Pattern)

	content := []byte("a = 1\ntoken = \"abcdefgh12345\"\nshort_token = \"abc\"\n")
	findings := tokenRule.Evaluate("conf.py", content)
	require.Len(t, findings, 1)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "conf.py", findings[0].Path)
}

func TestReportIssues_CountsOnlyFailures(t *testing.T) {
	report := &Report{Results: []CheckResult{
		{Name: "a", Status: StatusPass},
		{Name: "b", Status: StatusWarn},
		{Name: "c", Status: StatusFail},
		{Name: "d", Status: StatusFail},
	}}
	assert.Equal(t, 2, report.Issues())
}
