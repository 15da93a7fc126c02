package commands

import (
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/geoarch/fieldqa/errors"
	"github.com/geoarch/fieldqa/gis"
	"github.com/geoarch/fieldqa/gis/gpkg"
)

// LayersCmd lists the vector layers of a GeoPackage the way the checks
// will see them, useful when writing a configuration file.
var LayersCmd = &cobra.Command{
	Use:   "layers <geopackage>",
	Short: "List the vector layers of a GeoPackage",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayers,
}

func runLayers(cmd *cobra.Command, args []string) error {
	provider, err := gpkg.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "failed to open geopackage")
	}

	ids := provider.LayerIDs()
	sort.Strings(ids)

	for _, id := range ids {
		layer, _ := provider.LayerByID(id)
		role := pterm.Green("definitive")
		if layer.Role == gis.RoleTemporary {
			role = pterm.Yellow("temporary")
		}
		pterm.Printf("%s  %s  %s  (%d features, %d fields)\n",
			pterm.LightCyan(layer.ID), layer.Name, role,
			len(layer.Features), len(layer.Fields))
	}

	relations := provider.Relations()
	if len(relations) > 0 {
		pterm.Println()
		for _, rel := range relations {
			pair, ok := rel.FirstPair()
			if !ok {
				continue
			}
			pterm.Printf("%s: %s.%s %s %s.%s\n",
				pterm.Gray(rel.Name),
				rel.ReferencingLayerID, pair.Referencing,
				pterm.Gray("references"),
				rel.ReferencedLayerID, pair.Referenced)
		}
	}
	return nil
}
