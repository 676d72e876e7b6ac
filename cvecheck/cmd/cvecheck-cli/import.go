package main

import (
	"github.com/spf13/cobra"

	"github.com/rdecicco/cvecheckreport/importer"
)

var importReportCmd = &cobra.Command{
	Use:   "import-report <file>",
	Short: "Import a cve-check scan report file",
	RunE:  runImportReport,
}

var importCVEDBCmd = &cobra.Command{
	Use:   "import-cvedb <file>",
	Short: "Merge a reference vulnerability database file",
	RunE:  runImportCVEDB,
}

func runImportReport(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	return importer.ImportReport(App().Store, args[0])
}

func runImportCVEDB(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	return importer.ImportCVEDB(App().Store, args[0])
}

func init() {
	rootCmd.AddCommand(importReportCmd)
	rootCmd.AddCommand(importCVEDBCmd)
}
