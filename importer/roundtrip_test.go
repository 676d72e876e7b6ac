package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/report"
)

// The full pipeline: merge a reference database, import a scan report against
// it, then read the rollup and summary the way the CLI does.
func TestImportedReportRollupAndSummary(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)

	refDB := newSourceDB(t,
		[]cvecheck.NVDRecord{
			{
				ID:       "CVE-2024-0001",
				Summary:  "something bad",
				ScoreV3:  "9.8",
				Vector:   "NETWORK",
				Modified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		[]cvecheck.Product{
			{VulnerabilityID: "CVE-2024-0001", Vendor: "acme", Product: "widget"},
		},
	)
	require.NoError(ImportCVEDB(st, refDB))

	scan := writeReportFile(t, "scan.json",
		`{"version":"1","package":[{"name":"widget","layer":"core","version":"1.0","issue":[{"id":"CVE-2024-0001","status":"Unpatched","link":"http://x"}]}]}`)
	require.NoError(ImportReport(st, scan))

	full, err := st.GetFullReport("scan.json")
	require.NoError(err)
	require.Len(full.Packages, 1)
	assert.Equal("widget", full.Packages[0].Name)
	require.Len(full.Packages[0].Issues, 1)
	require.NotNil(full.Packages[0].Issues[0].NVD)
	assert.Equal("9.8", full.Packages[0].Issues[0].NVD.ScoreV3)

	engine := report.NewEngine(st)
	page, err := engine.Packages("scan.json", false, "", report.PageInfo{})
	require.NoError(err)
	require.Len(page.Data, 1)
	row := page.Data[0]
	assert.Equal("widget", row.Name)
	assert.Equal(1, row.Critical)
	assert.Zero(row.High)
	assert.Zero(row.Medium)
	assert.Zero(row.Low)
	assert.Zero(row.None)
	assert.Equal(1, row.Unpatched)
	assert.Zero(row.Patched)

	summary, err := report.Summarize(st, "scan.json")
	require.NoError(err)
	assert.Equal(1, summary.UnpatchedBySeverity.Critical)
	assert.Equal(1, summary.Status.Unpatched)
}
