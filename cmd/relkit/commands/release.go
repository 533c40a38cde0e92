package commands

import (
	"errors"
	"os"

	"github.com/dyluth/relkit/internal/config"
	"github.com/dyluth/relkit/internal/gitx"
	"github.com/dyluth/relkit/internal/printer"
	"github.com/dyluth/relkit/internal/release"
	"github.com/spf13/cobra"
)

var (
	releaseYes bool
)

var releaseCmd = &cobra.Command{
	Use:   "release VERSION",
	Short: "Bump the version, build, hash, commit and tag",
	Long: `Cut a release for the given version.

Steps, in order, aborting on the first failure:
  1. verify the package manifest is present
  2. confirm if the working tree has uncommitted changes
  3. write the version into the manifest
  4. run the build command
  5. verify the expected artifact exists
  6. compute the artifact's SHA-256
  7. commit the manifest change and create the annotated tag vVERSION

Re-releasing an existing version fails at the tag step: tags are
immutable release markers.

The printed SHA-256 goes into the packaging manifest (Homebrew formula)
by hand afterwards.

Use --yes to skip the uncommitted-changes prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().BoolVarP(&releaseYes, "yes", "y", false, "Release without prompting on uncommitted changes")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
	root := "."

	// Releases are cut from the repository root, like the manifest check
	checker := gitx.NewChecker(root)
	if err := checker.ValidateRepoRoot(); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(root)
	if err != nil {
		return err
	}

	builder := release.New(root, cfg)
	builder.BuildOutput = os.Stdout
	builder.Step = printStep
	if !releaseYes {
		builder.Confirm = confirm
	}

	result, err := builder.Run(args[0])
	if err != nil {
		if errors.Is(err, release.ErrDeclined) {
			// Declining is a graceful exit, not an error
			printer.Info("Aborted. Nothing released.\n")
			return nil
		}
		return err
	}

	printer.Println()
	printer.Success("Released %s\n", result.Tag)
	printer.Printf("  Artifact: %s\n", result.ArtifactPath)
	printer.Printf("  SHA-256:  %s\n", result.SHA256)
	printer.Printf("  Tag:      %s\n", result.Tag)
	printer.Printf("  Run ID:   %s\n", result.RunID)
	printer.Println()
	printer.Info("Copy the SHA-256 into the packaging formula, then push the tag:\n")
	printer.Printf("  git push origin %s\n", result.Tag)

	return nil
}

func printStep(format string, a ...any) {
	printer.Step(format+"\n", a...)
}
