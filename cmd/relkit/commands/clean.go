package commands

import (
	"github.com/dyluth/relkit/internal/clean"
	"github.com/dyluth/relkit/internal/config"
	"github.com/dyluth/relkit/internal/printer"
	"github.com/spf13/cobra"
)

var (
	cleanYes    bool
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove obsolete paths and normalize ignore rules",
	Long: `Bring the working tree to a distribution-ready state.

Deletes the configured set of obsolete files and directories, then makes
sure the editor-settings and OS-metadata ignore rules are present. Paths
that are already gone are skipped, so repeated runs are no-ops.

Deletion is irreversible. The full candidate set is shown before anything
is removed, and nothing happens without confirmation.

Use --dry-run to see the candidate set without deleting.
Use --yes to skip the confirmation prompt (for scripted use).`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Delete without prompting")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show the candidate set without deleting")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	root := "."

	cfg, err := config.LoadOrDefault(root)
	if err != nil {
		return err
	}

	if err := clean.CheckPrecondition(root, cfg); err != nil {
		return err
	}

	candidates, err := clean.Plan(root, cfg)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		printer.Success("Nothing to clean.\n")
	} else {
		printer.Info("The following will be deleted:\n")
		for _, candidate := range candidates {
			if candidate.Kind == clean.KindDir {
				printer.Printf("  %s/ (recursive)\n", candidate.Path)
			} else {
				printer.Printf("  %s\n", candidate.Path)
			}
		}
		printer.Println()

		if cleanDryRun {
			printer.Info("Dry run: nothing deleted.\n")
			return nil
		}

		if !cleanYes {
			ok, err := confirm("Delete these paths?")
			if err != nil {
				return err
			}
			if !ok {
				// Declining is a graceful exit, not an error
				printer.Info("Aborted. Nothing deleted.\n")
				return nil
			}
		}

		deleted, err := clean.Apply(root, candidates)
		for _, path := range deleted {
			printer.Success("deleted %s\n", path)
		}
		if err != nil {
			return err
		}
	}

	if cleanDryRun {
		return nil
	}

	added, err := clean.EnsureIgnoreRules(root, cfg.IgnoreFile, cfg.Clean.IgnoreEntries)
	if err != nil {
		return err
	}
	for _, entry := range added {
		printer.Success("added '%s' to %s\n", entry, cfg.IgnoreFile)
	}
	if len(added) == 0 {
		printer.Info("Ignore rules already up to date.\n")
	}

	return nil
}
