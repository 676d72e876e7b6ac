package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/importer"
)

var nvdCmd = &cobra.Command{
	Use:   "import-nvd",
	Short: "Import the NVD change feed into the reference data",
	RunE:  runImportNVD,
}

func runImportNVD(cmd *cobra.Command, args []string) error {
	return importer.NVDFeed(
		App().Store,
		App().Config,
		&importer.APIv2{},
		lookupPeriod(App().Config.Importers.NVD),
	)
}

// lookupPeriod parses a feed's configured lookup period, defaulting to one
// week when unset or unparsable.
func lookupPeriod(feed cvecheck.FeedConfig) time.Duration {
	period, err := time.ParseDuration(feed.LookupPeriod)
	if err != nil || period <= 0 {
		return 7 * 24 * time.Hour
	}
	return period
}

func init() {
	rootCmd.AddCommand(nvdCmd)
}
