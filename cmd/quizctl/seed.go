package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/principlequiz/backend/internal/principles"
)

var seedFileFlag string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load principles from a YAML seed file",
	Long: `Validate a YAML seed file and upsert every principle in it.

The whole file is rejected when any entry is invalid, so a bad file never
leaves the catalogue half updated.

Examples:
  quizctl seed --file data/principles.yaml`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFileFlag, "file", "f", "principles.yaml", "Seed file to load")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	loaded, err := principles.LoadSeedFile(seedFileFlag)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	inserted, updated, err := principles.Seed(cmd.Context(), a.principles, loaded)
	if err != nil {
		return fmt.Errorf("seed principles: %w", err)
	}

	total, err := a.principles.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d principles (%d new, %d updated). Catalogue now holds %d.\n",
		len(loaded), inserted, updated, total)
	return nil
}
