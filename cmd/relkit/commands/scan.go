package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dyluth/relkit/internal/config"
	"github.com/dyluth/relkit/internal/printer"
	"github.com/dyluth/relkit/internal/scan"
	"github.com/spf13/cobra"
)

var (
	scanRoot string
	scanJSON bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Audit the tree and Git history for leaked credentials",
	Long: `Run the pre-release secret audit against a working tree.

Checks performed:
  • secrets file is listed in the ignore rules
  • no vendor credential prefix appears in source files
  • secrets file is not in the Git index
  • no commit in history ever added the secrets file
  • example config contains only placeholder values (warning)
  • generic password/key/token patterns in source files (warning)

The exit status is the number of hard failures: 0 means safe to release.
Warnings require manual review but never block.

Use --json for machine-readable output.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRoot, "root", ".", "Working-tree root to scan")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output the report in JSON format")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(scanRoot)
	if err != nil {
		return err
	}

	scanner, err := scan.New(scanRoot, cfg)
	if err != nil {
		return err
	}

	report, err := scanner.Run()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		printReport(report)
	}

	// The issue count is the exit status: 0 means safe to release
	if issues := report.Issues(); issues > 0 {
		os.Exit(issues)
	}
	return nil
}

func printReport(report *scan.Report) {
	printer.Info("Secret scan\n\n")

	for _, result := range report.Results {
		switch result.Status {
		case scan.StatusPass:
			printer.Success("%s: %s\n", result.Name, result.Detail)
		case scan.StatusWarn:
			printer.Warning("%s: %s\n", result.Name, result.Detail)
		case scan.StatusFail:
			printer.Fail("%s: %s\n", result.Name, result.Detail)
		}
		for _, finding := range result.Findings {
			if finding.Line > 0 {
				printer.Printf("    %s:%d: %s\n", finding.Path, finding.Line, finding.Text)
			} else {
				printer.Printf("    %s: %s\n", finding.Path, finding.Text)
			}
		}
	}

	printer.Println()
	if issues := report.Issues(); issues > 0 {
		printer.Fail("%d issue(s) found. Release is blocked until they are fixed.\n", issues)
	} else {
		printer.Success("No issues found. Safe to release.\n")
	}
}
