package main

import (
	"github.com/spf13/cobra"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Commands to work with the database",
}

var dbCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Commands to cleanup the database",
}

var dbCleanReportCmd = &cobra.Command{
	Use:   "report <file-name>",
	Short: "Remove a report together with its packages, products and issues",
	RunE:  runDBCleanReport,
}

var dbCleanCVECmd = &cobra.Command{
	Use:   "cve <cve-id>",
	Short: "Remove a vulnerability record together with its product rows",
	RunE:  runDBCleanCVE,
}

var gcFlags = struct {
	dryRun bool
}{}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runDBMigrate,
}

func runDBCleanReport(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	reportName := args[0]

	return cvecheck.DeleteReportData(
		reportName,
		gcFlags.dryRun,
		_app.Store.DB(),
	)
}

func runDBCleanCVE(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	return cvecheck.DeleteVulnerabilityData(
		args[0],
		gcFlags.dryRun,
		_app.Store.DB(),
	)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	return _app.Store.Migrate()
}

func init() {
	dbCmd.PersistentFlags().BoolVarP(&gcFlags.dryRun, "dry-run", "n", false, "Only show the amount of records found")

	dbCleanCmd.AddCommand(dbCleanReportCmd)
	dbCleanCmd.AddCommand(dbCleanCVECmd)
	dbCmd.AddCommand(dbCleanCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	rootCmd.AddCommand(dbCmd)
}
