// Package scan implements the pre-release secret audit: a fixed sequence
// of independent checks over the working tree, the Git index, and the
// full commit history. The scanner never mutates anything; its report's
// hard-failure count doubles as the process exit status.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/relkit/internal/config"
	"github.com/dyluth/relkit/internal/gitx"
)

// Status classifies a check outcome
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
)

// CheckResult is the outcome of one scanner check
type CheckResult struct {
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	Detail   string    `json:"detail,omitempty"`
	Findings []Finding `json:"findings,omitempty"`
}

// Report aggregates all check outcomes for one scanner run
type Report struct {
	Results []CheckResult `json:"results"`
}

// Issues returns the number of hard failures. Warnings never count:
// they require manual review but do not block a release.
func (r *Report) Issues() int {
	count := 0
	for _, result := range r.Results {
		if result.Status == StatusFail {
			count++
		}
	}
	return count
}

// Scanner runs the secret checks against one working-tree root
type Scanner struct {
	Root string
	Cfg  *config.Config
	Git  *gitx.Checker

	rules []Rule
}

// New creates a scanner for the given root and configuration
func New(root string, cfg *config.Config) (*Scanner, error) {
	rules, err := CompileRules(cfg.Scan.Rules)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		Root:  root,
		Cfg:   cfg,
		Git:   gitx.NewChecker(root),
		rules: rules,
	}, nil
}

// Run executes every check in order and returns the combined report.
// Checks are independent: a failure in one never short-circuits the rest.
func (s *Scanner) Run() (*Report, error) {
	report := &Report{}

	report.Results = append(report.Results, s.checkIgnoreRule())

	keyPrefix, err := s.checkKeyPrefix()
	if err != nil {
		return nil, err
	}
	report.Results = append(report.Results, keyPrefix)

	tracked, err := s.checkSecretsTracked()
	if err != nil {
		return nil, err
	}
	report.Results = append(report.Results, tracked)

	history, err := s.checkSecretsHistory()
	if err != nil {
		return nil, err
	}
	report.Results = append(report.Results, history)

	report.Results = append(report.Results, s.checkExampleConfig())

	patterns, err := s.checkGenericPatterns()
	if err != nil {
		return nil, err
	}
	report.Results = append(report.Results, patterns)

	return report, nil
}

// checkIgnoreRule verifies the secrets file is listed in the ignore rules
func (s *Scanner) checkIgnoreRule() CheckResult {
	result := CheckResult{Name: "ignore-rule"}

	data, err := os.ReadFile(filepath.Join(s.Root, s.Cfg.IgnoreFile))
	if err != nil {
		result.Status = StatusFail
		result.Detail = fmt.Sprintf("%s not found: %s must be ignored before a release", s.Cfg.IgnoreFile, s.Cfg.SecretsFile)
		return result
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == s.Cfg.SecretsFile {
			result.Status = StatusPass
			result.Detail = fmt.Sprintf("%s is listed in %s", s.Cfg.SecretsFile, s.Cfg.IgnoreFile)
			return result
		}
	}

	result.Status = StatusFail
	result.Detail = fmt.Sprintf("%s is not listed in %s", s.Cfg.SecretsFile, s.Cfg.IgnoreFile)
	return result
}

// checkKeyPrefix searches all source files for the vendor credential
// prefix signature. Any occurrence is a hard failure.
func (s *Scanner) checkKeyPrefix() (CheckResult, error) {
	result := CheckResult{Name: "key-prefix"}

	var findings []Finding
	err := s.walkSourceFiles(func(rel string, content []byte) {
		for i, line := range strings.Split(string(content), "\n") {
			if strings.Contains(line, s.Cfg.Scan.KeyPrefix) {
				findings = append(findings, Finding{
					Rule: "key-prefix",
					Path: rel,
					Line: i + 1,
					Text: strings.TrimSpace(line),
				})
			}
		}
	})
	if err != nil {
		return result, err
	}

	if len(findings) > 0 {
		result.Status = StatusFail
		result.Detail = fmt.Sprintf("found %d occurrence(s) of credential prefix %q", len(findings), s.Cfg.Scan.KeyPrefix)
		result.Findings = findings
		return result, nil
	}

	result.Status = StatusPass
	result.Detail = fmt.Sprintf("no %q credentials in source files", s.Cfg.Scan.KeyPrefix)
	return result, nil
}

// checkSecretsTracked verifies the secrets file is not in the Git index
func (s *Scanner) checkSecretsTracked() (CheckResult, error) {
	result := CheckResult{Name: "index"}

	tracked, err := s.Git.IsTracked(s.Cfg.SecretsFile)
	if err != nil {
		return result, err
	}

	if tracked {
		result.Status = StatusFail
		result.Detail = fmt.Sprintf("%s is tracked by Git: remove it with 'git rm --cached %s'", s.Cfg.SecretsFile, s.Cfg.SecretsFile)
		result.Findings = []Finding{{Rule: "index", Path: s.Cfg.SecretsFile, Line: 0, Text: "tracked"}}
		return result, nil
	}

	result.Status = StatusPass
	result.Detail = fmt.Sprintf("%s is not tracked", s.Cfg.SecretsFile)
	return result, nil
}

// checkSecretsHistory verifies no commit ever added the secrets file.
// The scanner only detects; remediation requires a history rewrite.
func (s *Scanner) checkSecretsHistory() (CheckResult, error) {
	result := CheckResult{Name: "history"}

	commits, err := s.Git.HistoryAddedFile(s.Cfg.SecretsFile)
	if err != nil {
		return result, err
	}

	if len(commits) > 0 {
		result.Status = StatusFail
		result.Detail = fmt.Sprintf("%s was added in %d commit(s); history must be rewritten before release", s.Cfg.SecretsFile, len(commits))
		for _, commit := range commits {
			result.Findings = append(result.Findings, Finding{
				Rule: "history",
				Path: s.Cfg.SecretsFile,
				Text: commit,
			})
		}
		return result, nil
	}

	result.Status = StatusPass
	result.Detail = fmt.Sprintf("%s never entered Git history", s.Cfg.SecretsFile)
	return result, nil
}

var placeholderTokens = []string{"your", "placeholder", "example", "changeme", "xxx", "<", "here"}

// checkExampleConfig warns when the checked-in template config looks like
// it carries concrete values instead of placeholders
func (s *Scanner) checkExampleConfig() CheckResult {
	result := CheckResult{Name: "example-config"}

	data, err := os.ReadFile(filepath.Join(s.Root, s.Cfg.ExampleConfig))
	if err != nil {
		// A missing template is fine; there is just nothing to vet
		result.Status = StatusPass
		result.Detail = fmt.Sprintf("%s not present", s.Cfg.ExampleConfig)
		return result
	}

	var suspicious []Finding
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		_, value, found := strings.Cut(trimmed, "=")
		if !found || strings.TrimSpace(value) == "" {
			continue
		}
		if !looksLikePlaceholder(value) {
			suspicious = append(suspicious, Finding{
				Rule: "example-config",
				Path: s.Cfg.ExampleConfig,
				Line: i + 1,
				Text: trimmed,
			})
		}
	}

	if len(suspicious) > 0 {
		result.Status = StatusWarn
		result.Detail = fmt.Sprintf("%s has %d value(s) that do not look like placeholders; review manually", s.Cfg.ExampleConfig, len(suspicious))
		result.Findings = suspicious
		return result
	}

	result.Status = StatusPass
	result.Detail = fmt.Sprintf("%s contains only placeholder values", s.Cfg.ExampleConfig)
	return result
}

func looksLikePlaceholder(value string) bool {
	lowered := strings.ToLower(value)
	for _, token := range placeholderTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// checkGenericPatterns applies the configured key=value rules across
// source files, excluding the secrets file itself. Matches are warnings:
// false positives are expected, so they require review but never block.
func (s *Scanner) checkGenericPatterns() (CheckResult, error) {
	result := CheckResult{Name: "patterns"}

	var findings []Finding
	err := s.walkSourceFiles(func(rel string, content []byte) {
		if filepath.Base(rel) == s.Cfg.SecretsFile {
			return
		}
		for _, rule := range s.rules {
			findings = append(findings, rule.Evaluate(rel, content)...)
		}
	})
	if err != nil {
		return result, err
	}

	if len(findings) > 0 {
		result.Status = StatusWarn
		result.Detail = fmt.Sprintf("%d pattern match(es) need manual review", len(findings))
		result.Findings = findings
		return result, nil
	}

	result.Status = StatusPass
	result.Detail = "no secret-pattern matches"
	return result, nil
}

// walkSourceFiles visits every scannable file under the root, calling fn
// with the root-relative path and file content
func (s *Scanner) walkSourceFiles(fn func(rel string, content []byte)) error {
	extensions := make(map[string]bool, len(s.Cfg.Scan.Extensions))
	for _, ext := range s.Cfg.Scan.Extensions {
		extensions[ext] = true
	}
	excluded := make(map[string]bool, len(s.Cfg.Scan.ExcludeDirs))
	for _, dir := range s.Cfg.Scan.ExcludeDirs {
		excluded[dir] = true
	}

	return filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excluded[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensions[filepath.Ext(d.Name())] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		fn(rel, content)
		return nil
	})
}
