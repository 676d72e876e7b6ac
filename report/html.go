package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

type cveSection struct {
	Title string
	Rows  []CVERow
}

type htmlData struct {
	Summary   *Summary
	Packages  []PackageRollup
	Unpatched []cveSection
	Ignored   []CVERow
	Generated time.Time
}

// RenderHTML writes the full styled report document: general information,
// summary tables, the package rollup, the unpatched CVEs grouped per
// severity band, and the ignored CVEs.
func (e *Engine) RenderHTML(reportName string, w io.Writer) error {
	summary, err := Summarize(e.store, reportName)
	if err != nil {
		return err
	}

	packages, err := e.Packages(reportName, false, "", PageInfo{})
	if err != nil {
		return err
	}

	// Half-open bands so every representable score lands in exactly one
	// section, whatever its precision.
	bands := []struct {
		title        string
		start, below float64
	}{
		{"Unpatched Critical CVEs", 9.0, 0},
		{"Unpatched High CVEs", 7.0, 9.0},
		{"Unpatched Medium CVEs", 4.0, 7.0},
		{"Unpatched Low CVEs", 0.1, 4.0},
		{"Unpatched None CVEs", 0.0, 0.1},
	}

	sections := make([]cveSection, 0, len(bands))
	for _, band := range bands {
		filter := CVEFilter{
			Status:     cvecheck.StatusUnpatched,
			ScoreStart: band.start,
			ScoreBelow: band.below,
		}
		if filter.ScoreBelow == 0 {
			filter.ScoreEnd = 10.0
		}
		rows, err := e.CVEs(reportName, filter, PageInfo{})
		if err != nil {
			return err
		}
		sections = append(sections, cveSection{Title: band.title, Rows: rows.Data})
	}

	ignored, err := e.IgnoredCVEs(reportName, "", PageInfo{})
	if err != nil {
		return err
	}

	data := htmlData{
		Summary:   summary,
		Packages:  packages.Data,
		Unpatched: sections,
		Ignored:   ignored.Data,
		Generated: time.Now().UTC(),
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("could not render report: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
}).Parse(reportTemplateText))

const reportTemplateText = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>CVE Report {{.Summary.Report.FileName}}</title>
<style>
body { font-family: verdana; text-align: center; }
h1, h2, h3, p { text-align: center; }
h2 { margin-top: 5mm; }
div { page-break-inside: avoid; }
table { padding: 5px; margin-left: auto; margin-right: auto; margin-bottom: 5mm; }
table.content { border: 2px double black; border-radius: 5px; padding: 5px; text-align: center; }
table.content th { background-color: #d0d0d0; padding: 2px 8px; }
table.content td { padding: 2px 8px; }
.pagebreak { page-break-after: always; }
</style>
</head>
<body>
<h1>CVE Report</h1>

<div>
<h2>General Information</h2>
<table class="content">
<tr><th>File Name</th><td>{{.Summary.Report.FileName}}</td></tr>
<tr><th>Date</th><td>{{datetime .Summary.Report.Date}}</td></tr>
<tr><th>Owner</th><td>{{.Summary.Report.Owner}}</td></tr>
<tr><th>Schema Version</th><td>{{.Summary.Report.Version}}</td></tr>
<tr><th>Generated</th><td>{{datetime .Generated}}</td></tr>
</table>
</div>

<div>
<h2>Summary</h2>
<table class="content">
<thead><tr><th></th><th>Patched</th><th>Unpatched</th><th>Ignored</th><th>Unknown</th></tr></thead>
<tbody>
<tr><th>Issues by status</th>
<td>{{.Summary.Status.Patched}}</td>
<td>{{.Summary.Status.Unpatched}}</td>
<td>{{.Summary.Status.Ignored}}</td>
<td>{{.Summary.Status.Unknown}}</td></tr>
</tbody>
</table>
<table class="content">
<thead><tr><th></th><th>Critical</th><th>High</th><th>Medium</th><th>Low</th><th>None</th></tr></thead>
<tbody>
<tr><th>Unpatched CVEs by severity</th>
<td>{{.Summary.UnpatchedBySeverity.Critical}}</td>
<td>{{.Summary.UnpatchedBySeverity.High}}</td>
<td>{{.Summary.UnpatchedBySeverity.Medium}}</td>
<td>{{.Summary.UnpatchedBySeverity.Low}}</td>
<td>{{.Summary.UnpatchedBySeverity.None}}</td></tr>
<tr><th>All CVEs by severity</th>
<td>{{.Summary.AllBySeverity.Critical}}</td>
<td>{{.Summary.AllBySeverity.High}}</td>
<td>{{.Summary.AllBySeverity.Medium}}</td>
<td>{{.Summary.AllBySeverity.Low}}</td>
<td>{{.Summary.AllBySeverity.None}}</td></tr>
</tbody>
</table>
</div>

<div class="pagebreak"></div>

<div>
<h2>Packages</h2>
<table class="content">
<thead><tr><th>Name</th><th>Layer</th><th>Version</th><th>Critical</th><th>High</th><th>Medium</th><th>Low</th><th>None</th><th>Unpatched</th><th>Patched</th><th>Ignored</th></tr></thead>
<tbody>
{{range .Packages}}<tr><td>{{.Name}}</td><td>{{.Layer}}</td><td>{{.Version}}</td><td>{{.Critical}}</td><td>{{.High}}</td><td>{{.Medium}}</td><td>{{.Low}}</td><td>{{.None}}</td><td>{{.Unpatched}}</td><td>{{.Patched}}</td><td>{{.Ignored}}</td></tr>
{{end}}</tbody>
</table>
</div>

{{range .Unpatched}}
<div class="pagebreak"></div>
<div>
<h2>{{.Title}}</h2>
<table class="content">
<thead><tr><th>Package</th><th>Layer</th><th>Version</th><th>CVE</th><th>Score</th><th>Vector</th><th>Link</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Name}}</td><td>{{.Layer}}</td><td>{{.Version}}</td><td>{{.NVDID}}</td><td>{{.Score}}</td><td>{{.Vector}}</td><td><a href="{{.Link}}">{{.Link}}</a></td></tr>
{{end}}</tbody>
</table>
</div>
{{end}}

<div class="pagebreak"></div>
<div>
<h2>Ignored CVEs</h2>
<table class="content">
<thead><tr><th>Package</th><th>Layer</th><th>Version</th><th>CVE</th><th>Score</th><th>Vector</th><th>Link</th></tr></thead>
<tbody>
{{range .Ignored}}<tr><td>{{.Name}}</td><td>{{.Layer}}</td><td>{{.Version}}</td><td>{{.NVDID}}</td><td>{{.Score}}</td><td>{{.Vector}}</td><td><a href="{{.Link}}">{{.Link}}</a></td></tr>
{{end}}</tbody>
</table>
</div>

</body>
</html>
`
