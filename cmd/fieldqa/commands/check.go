package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/geoarch/fieldqa/detect"
	"github.com/geoarch/fieldqa/errors"
	"github.com/geoarch/fieldqa/gis/gpkg"
	"github.com/geoarch/fieldqa/settings"
)

// CheckCmd runs every enabled detector against a GeoPackage and prints
// the resulting warnings.
var CheckCmd = &cobra.Command{
	Use:   "check <geopackage>",
	Short: "Run quality checks against a GeoPackage",
	Long: `Run all enabled quality checks against the layers of a GeoPackage.

Configuration is read from the file given with --config (TOML), falling
back to built-in defaults. Layer names in the configuration refer to
GeoPackage table names.

Examples:
  fieldqa check survey.gpkg
  fieldqa check survey.gpkg --config fieldqa.toml
  fieldqa check survey.gpkg --json > warnings.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var (
	checkConfigFlag string
	checkJSONFlag   bool
)

func init() {
	CheckCmd.Flags().StringVarP(&checkConfigFlag, "config", "c", "", "Path to TOML configuration file")
	CheckCmd.Flags().BoolVar(&checkJSONFlag, "json", false, "Emit warnings as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(checkConfigFlag)
	if err != nil {
		return err
	}

	provider, err := gpkg.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "failed to open geopackage")
	}

	warnings := detect.NewRunner(cfg, provider).Run()

	if checkJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(warnings); err != nil {
			return errors.Wrap(err, "failed to encode warnings")
		}
	} else {
		printWarnings(warnings)
	}

	if len(warnings) > 0 {
		// Non-zero exit so scripted callers can gate on a clean run.
		os.Exit(2)
	}
	return nil
}

func loadSettings(path string) (*settings.Settings, error) {
	if path == "" {
		return settings.Default(), nil
	}
	cfg, err := settings.LoadFromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load configuration from %s", path)
	}
	return cfg, nil
}

func printWarnings(warnings []detect.WarningData) {
	if len(warnings) == 0 {
		pterm.Success.Println("No issues found")
		return
	}

	for i, w := range warnings {
		pterm.Printf("%s %s\n", pterm.Yellow(fmt.Sprintf("[%d]", i+1)), w.Message)
		if w.RecordingAreaName != "" {
			pterm.Printf("    %s %s\n", pterm.Gray("Area:"), w.RecordingAreaName)
		}
		if w.LayerName != "" {
			pterm.Printf("    %s %s\n", pterm.Gray("Layer:"), pterm.LightCyan(w.LayerName))
		}
		if w.FilterExpression != "" {
			pterm.Printf("    %s %s\n", pterm.Gray("Filter:"), w.FilterExpression)
		}
		if w.SecondLayerName != "" {
			pterm.Printf("    %s %s\n", pterm.Gray("Layer:"), pterm.LightCyan(w.SecondLayerName))
		}
		if w.SecondFilterExpression != "" {
			pterm.Printf("    %s %s\n", pterm.Gray("Filter:"), w.SecondFilterExpression)
		}
	}
	pterm.Println()
	pterm.Warning.Printf("%d issue(s) found\n", len(warnings))
}
