package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoarch/fieldqa/cmd/fieldqa/commands"
	"github.com/geoarch/fieldqa/logger"
)

var rootCmd = &cobra.Command{
	Use:   "fieldqa",
	Short: "fieldqa - Quality checks for archaeological field recording data",
	Long: `fieldqa - Quality checks for archaeological field recording data.

fieldqa inspects the vector layers of a field recording project and reports
likely recording mistakes: duplicate object numbers, skipped numbers in a
sequence, finds recorded implausibly far from their total station point,
height mismatches between nearby points, finds outside their recording area,
and total station points with no matching find.

Examples:
  fieldqa check survey.gpkg                  # Run all enabled checks
  fieldqa check survey.gpkg --json           # Machine-readable output
  fieldqa check survey.gpkg -c fieldqa.toml  # With explicit configuration
  fieldqa layers survey.gpkg                 # List the layers fieldqa sees`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		verbose, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonOutput, verbose > 0); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")

	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.LayersCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
