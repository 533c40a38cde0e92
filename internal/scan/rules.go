package scan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dyluth/relkit/internal/config"
)

// Rule is one named secret detector: evaluate file content, return zero
// or more match locations
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Finding is a single rule match inside a scanned file
type Finding struct {
	Rule string `json:"rule"`
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Evaluate applies the rule line-by-line and returns all match locations
func (r Rule) Evaluate(path string, content []byte) []Finding {
	var findings []Finding
	for i, line := range strings.Split(string(content), "\n") {
		if r.Pattern.MatchString(line) {
			findings = append(findings, Finding{
				Rule: r.Name,
				Path: path,
				Line: i + 1,
				Text: strings.TrimSpace(line),
			})
		}
	}
	return findings
}

// CompileRules builds the rule set from configuration.
// Patterns were already validated by config.Validate, but compilation
// errors are still reported rather than panicking.
func CompileRules(configs []config.RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for _, rc := range configs {
		pattern, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", rc.Name, err)
		}
		rules = append(rules, Rule{Name: rc.Name, Pattern: pattern})
	}
	return rules, nil
}
