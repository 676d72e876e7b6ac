package main

import (
	"github.com/spf13/cobra"

	"github.com/rdecicco/cvecheckreport/importer"
)

var vulnrichCmd = &cobra.Command{
	Use:   "import-vulnrich",
	Short: "Import vulnrichment records into the reference data",
	RunE:  runImportVulnrich,
}

func runImportVulnrich(cmd *cobra.Command, args []string) error {
	return importer.VulnrichFeed(
		App().Store,
		App().Config,
		lookupPeriod(App().Config.Importers.Vulnrich),
	)
}

func init() {
	rootCmd.AddCommand(vulnrichCmd)
}
