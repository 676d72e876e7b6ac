package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rdecicco/cvecheckreport/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query imported reports and reference data",
}

var listFlags = struct {
	entries int
	page    int
	filter  string
}{}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the imported reports",
	RunE:  runReportList,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary <file-name>",
	Short: "Print the summary statistics of a report",
	RunE:  runReportSummary,
}

var reportHTMLCmd = &cobra.Command{
	Use:   "html <file-name> <output>",
	Short: "Export a report as a styled HTML document",
	RunE:  runReportHTML,
}

var packagesFlags = struct {
	unpatchedOnly bool
}{}

var reportPackagesCmd = &cobra.Command{
	Use:   "packages <file-name>",
	Short: "List a report's packages with severity rollups",
	RunE:  runReportPackages,
}

var cvesFlags = struct {
	packageID  int64
	status     string
	vector     string
	scoreStart float64
	scoreEnd   float64
}{}

var reportCVEsCmd = &cobra.Command{
	Use:   "cves <file-name>",
	Short: "List a report's CVEs",
	RunE:  runReportCVEs,
}

var reportIgnoredCmd = &cobra.Command{
	Use:   "ignored <file-name>",
	Short: "List a report's ignored CVEs",
	RunE:  runReportIgnored,
}

var nvdDataFlags = struct {
	product  string
	vector   string
	minScore float64
}{}

var reportNVDCmd = &cobra.Command{
	Use:   "nvd",
	Short: "List vulnerability records of the reference data",
	RunE:  runReportNVD,
}

var reportProductsCmd = &cobra.Command{
	Use:   "products <cve-id>",
	Short: "List the products affected by a vulnerability record",
	RunE:  runReportProducts,
}

func pageInfo() report.PageInfo {
	return report.PageInfo{Entries: listFlags.entries, Page: listFlags.page}
}

func runReportList(cmd *cobra.Command, args []string) error {
	names, err := App().Store.ListReportNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	summary, err := report.Summarize(App().Store, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Report:    %s\n", summary.Report.FileName)
	fmt.Printf("Date:      %s\n", summary.Report.Date.Format("2006-01-02 15:04:05"))
	fmt.Printf("Owner:     %s\n", summary.Report.Owner)
	fmt.Printf("Issues:    %d patched, %d unpatched, %d ignored\n",
		summary.Status.Patched, summary.Status.Unpatched, summary.Status.Ignored)
	fmt.Printf("Packages without issues: %d\n", summary.Status.Unknown)
	fmt.Printf("Unpatched by severity:   critical %d, high %d, medium %d, low %d, none %d\n",
		summary.UnpatchedBySeverity.Critical, summary.UnpatchedBySeverity.High,
		summary.UnpatchedBySeverity.Medium, summary.UnpatchedBySeverity.Low,
		summary.UnpatchedBySeverity.None)
	fmt.Printf("All by severity:         critical %d, high %d, medium %d, low %d, none %d\n",
		summary.AllBySeverity.Critical, summary.AllBySeverity.High,
		summary.AllBySeverity.Medium, summary.AllBySeverity.Low,
		summary.AllBySeverity.None)
	return nil
}

func runReportHTML(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return cmd.Usage()
	}

	out, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer out.Close()

	engine := report.NewEngine(App().Store)
	return engine.RenderHTML(args[0], out)
}

func runReportPackages(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	engine := report.NewEngine(App().Store)
	page, err := engine.Packages(args[0], packagesFlags.unpatchedOnly, listFlags.filter, pageInfo())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLAYER\tVERSION\tCRITICAL\tHIGH\tMEDIUM\tLOW\tNONE\tUNPATCHED\tPATCHED\tIGNORED")
	for _, row := range page.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			row.Name, row.Layer, row.Version,
			row.Critical, row.High, row.Medium, row.Low, row.None,
			row.Unpatched, row.Patched, row.Ignored)
	}
	w.Flush()
	printPageFooter(page.Total, page.TotalPages)
	return nil
}

func runReportCVEs(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	engine := report.NewEngine(App().Store)
	page, err := engine.CVEs(args[0], report.CVEFilter{
		PackageID:  cvesFlags.packageID,
		Status:     cvesFlags.status,
		Vector:     cvesFlags.vector,
		ScoreStart: cvesFlags.scoreStart,
		ScoreEnd:   cvesFlags.scoreEnd,
		Filter:     listFlags.filter,
	}, pageInfo())
	if err != nil {
		return err
	}

	printCVERows(page.Data)
	printPageFooter(page.Total, page.TotalPages)
	return nil
}

func runReportIgnored(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	engine := report.NewEngine(App().Store)
	page, err := engine.IgnoredCVEs(args[0], listFlags.filter, pageInfo())
	if err != nil {
		return err
	}

	printCVERows(page.Data)
	printPageFooter(page.Total, page.TotalPages)
	return nil
}

func runReportNVD(cmd *cobra.Command, args []string) error {
	engine := report.NewEngine(App().Store)
	page, err := engine.NVDData(report.NVDFilter{
		Product:  nvdDataFlags.product,
		Vector:   nvdDataFlags.vector,
		MinScore: nvdDataFlags.minScore,
		Filter:   listFlags.filter,
	}, pageInfo())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCOREV2\tSCOREV3\tVECTOR\tMODIFIED\tSUMMARY")
	for _, row := range page.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.ID, row.ScoreV2, row.ScoreV3, row.Vector,
			row.Modified.Format("2006-01-02"), truncate(row.Summary, 80))
	}
	w.Flush()
	printPageFooter(page.Total, page.TotalPages)
	return nil
}

func runReportProducts(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return cmd.Usage()
	}

	engine := report.NewEngine(App().Store)
	page, err := engine.Products(args[0], listFlags.filter, pageInfo())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVENDOR\tPRODUCT\tVERSION START\tVERSION END")
	for _, row := range page.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s %s\n",
			row.VulnerabilityID, row.Vendor, row.Product,
			row.OperatorStart, row.VersionStart,
			row.OperatorEnd, row.VersionEnd)
	}
	w.Flush()
	printPageFooter(page.Total, page.TotalPages)
	return nil
}

func completeProductNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names, err := App().Store.GetAllProductNames()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func printCVERows(rows []report.CVERow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tLAYER\tVERSION\tCVE\tSTATUS\tSCORE\tVECTOR\tLINK")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
			row.Name, row.Layer, row.Version, row.NVDID,
			row.Status, row.Score, row.Vector, row.Link)
	}
	w.Flush()
}

func printPageFooter(total, pages int64) {
	fmt.Printf("%d rows, %d pages\n", total, pages)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func init() {
	reportCmd.PersistentFlags().IntVar(&listFlags.entries, "entries", 0, "Entries per page, 0 returns everything")
	reportCmd.PersistentFlags().IntVar(&listFlags.page, "page", 1, "1-based page to show")
	reportCmd.PersistentFlags().StringVar(&listFlags.filter, "filter", "", "Substring filter on the listing")

	reportPackagesCmd.Flags().BoolVar(&packagesFlags.unpatchedOnly, "unpatched-only", false, "Count only unpatched issues in the severity buckets")

	reportCVEsCmd.Flags().Int64Var(&cvesFlags.packageID, "package-id", 0, "Restrict to one package, 0 means all")
	reportCVEsCmd.Flags().StringVar(&cvesFlags.status, "status", "", "Restrict to one issue status")
	reportCVEsCmd.Flags().StringVar(&cvesFlags.vector, "vector", "", "Restrict to one attack vector")
	reportCVEsCmd.Flags().Float64Var(&cvesFlags.scoreStart, "score-start", 0, "Lower CVSSv3 score bound, inclusive")
	reportCVEsCmd.Flags().Float64Var(&cvesFlags.scoreEnd, "score-end", 10, "Upper CVSSv3 score bound, inclusive")

	reportNVDCmd.Flags().StringVar(&nvdDataFlags.product, "product", "", "Restrict to one product name")
	reportNVDCmd.Flags().StringVar(&nvdDataFlags.vector, "vector", "", "Restrict to one attack vector")
	reportNVDCmd.Flags().Float64Var(&nvdDataFlags.minScore, "min-score", 0, "Strict lower CVSSv3 score bound")
	_ = reportNVDCmd.RegisterFlagCompletionFunc("product", completeProductNames)

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	reportCmd.AddCommand(reportHTMLCmd)
	reportCmd.AddCommand(reportPackagesCmd)
	reportCmd.AddCommand(reportCVEsCmd)
	reportCmd.AddCommand(reportIgnoredCmd)
	reportCmd.AddCommand(reportNVDCmd)
	reportCmd.AddCommand(reportProductsCmd)
	rootCmd.AddCommand(reportCmd)
}
