package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	return st
}

// seedReport builds one report covering every severity band boundary:
//
//	busybox: CVE-A 9.0 Unpatched, CVE-B 8.9 Patched, CVE-C 7.0 Unpatched
//	zlib:    CVE-D 6.9 Ignored, CVE-E 4.0 Unpatched
//	clean:   no issues at all
//	orphan:  one issue without a resolved vulnerability reference
func seedReport(t *testing.T, st *store.Store) {
	t.Helper()

	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []cvecheck.NVDRecord{
		{ID: "CVE-A", ScoreV3: "9.0", Vector: "NETWORK", VectorString: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", Modified: modified},
		{ID: "CVE-B", ScoreV3: "8.9", Vector: "NETWORK", Modified: modified},
		{ID: "CVE-C", ScoreV3: "7.0", Vector: "LOCAL", Modified: modified},
		{ID: "CVE-D", ScoreV3: "6.9", Vector: "LOCAL", Modified: modified},
		{ID: "CVE-E", ScoreV3: "4.0", Vector: "NETWORK", Modified: modified},
	}
	for i := range records {
		require.NoError(t, st.CreateNVD(&records[i]))
	}

	reportID, err := st.CreateReport(&cvecheck.CVEReport{
		FileName: "scan.json",
		Version:  1,
		Date:     modified,
	})
	require.NoError(t, err)

	busybox, err := st.CreatePackage(&cvecheck.Package{Name: "busybox", Layer: "meta", Version: "1.36.1", CVEReportID: reportID})
	require.NoError(t, err)
	zlib, err := st.CreatePackage(&cvecheck.Package{Name: "zlib", Layer: "core", Version: "1.3", CVEReportID: reportID})
	require.NoError(t, err)
	_, err = st.CreatePackage(&cvecheck.Package{Name: "clean", Layer: "core", Version: "1.0", CVEReportID: reportID})
	require.NoError(t, err)
	orphan, err := st.CreatePackage(&cvecheck.Package{Name: "orphan", Layer: "core", Version: "1.0", CVEReportID: reportID})
	require.NoError(t, err)

	issues := []cvecheck.Issue{
		{Status: cvecheck.StatusUnpatched, PackageID: busybox, NVDID: "CVE-A", Link: "https://x/a"},
		{Status: cvecheck.StatusPatched, PackageID: busybox, NVDID: "CVE-B", Link: "https://x/b"},
		{Status: cvecheck.StatusUnpatched, PackageID: busybox, NVDID: "CVE-C", Link: "https://x/c"},
		{Status: cvecheck.StatusIgnored, PackageID: zlib, NVDID: "CVE-D", Link: "https://x/d"},
		{Status: cvecheck.StatusUnpatched, PackageID: zlib, NVDID: "CVE-E", Link: "https://x/e"},
		{Status: cvecheck.StatusUnpatched, PackageID: orphan, NVDID: ""},
	}
	for i := range issues {
		_, err := st.CreateIssue(&issues[i])
		require.NoError(t, err)
	}

	products := []cvecheck.Product{
		{VulnerabilityID: "CVE-A", Vendor: "acme", Product: "busybox", VersionStart: "1.9", OperatorStart: "="},
		{VulnerabilityID: "CVE-A", Vendor: "acme", Product: "busybox", VersionStart: "1.10", OperatorStart: "="},
		{VulnerabilityID: "CVE-A", Vendor: "acme", Product: "busybox", VersionStart: "1.2", OperatorStart: "="},
		{VulnerabilityID: "CVE-B", Vendor: "acme", Product: "zlib"},
	}
	for i := range products {
		require.NoError(t, st.CreateProduct(&products[i]))
	}
}

func TestPackagesRollup(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	page, err := NewEngine(st).Packages("scan.json", false, "", PageInfo{})
	require.NoError(err)

	require.Len(page.Data, 2, "packages without scored issues are suppressed")
	assert.Equal(int64(2), page.Total)

	busybox := page.Data[0]
	assert.Equal("busybox", busybox.Name, "highest critical count sorts first")
	assert.Equal(1, busybox.Critical)
	assert.Equal(2, busybox.High)
	assert.Equal(0, busybox.Medium)
	assert.Equal(2, busybox.Unpatched)
	assert.Equal(1, busybox.Patched)

	zlib := page.Data[1]
	assert.Equal("zlib", zlib.Name)
	assert.Equal(2, zlib.Medium)
	assert.Equal(1, zlib.Unpatched)
	assert.Equal(1, zlib.Ignored)
}

func TestPackagesRollupUnpatchedOnly(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	page, err := NewEngine(st).Packages("scan.json", true, "", PageInfo{})
	require.NoError(err)

	require.Len(page.Data, 2)
	busybox := page.Data[0]
	assert.Equal(1, busybox.Critical)
	assert.Equal(1, busybox.High, "the patched 8.9 issue no longer counts")
	assert.Equal(1, busybox.Patched, "status counts stay unfiltered")

	zlib := page.Data[1]
	assert.Equal(1, zlib.Medium, "the ignored 6.9 issue no longer counts")
}

func TestPackagesRollupNameFilter(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	page, err := NewEngine(st).Packages("scan.json", false, "busy", PageInfo{})
	require.NoError(err)
	require.Len(page.Data, 1)
	require.Equal("busybox", page.Data[0].Name)
}

func TestCVEsListing(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)
	engine := NewEngine(st)

	page, err := engine.CVEs("scan.json", CVEFilter{ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	assert.Equal(int64(5), page.Total, "issues without a resolved reference never join")
	require.Len(page.Data, 5)
	assert.Equal("busybox", page.Data[0].Name, "sorted by package name first")

	page, err = engine.CVEs("scan.json", CVEFilter{Status: cvecheck.StatusUnpatched, ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	assert.Equal(int64(3), page.Total)

	page, err = engine.CVEs("scan.json", CVEFilter{Vector: "LOCAL", ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	assert.Equal(int64(2), page.Total)
}

func TestCVEsScoreRangeIsInclusive(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)
	engine := NewEngine(st)

	page, err := engine.CVEs("scan.json", CVEFilter{ScoreStart: 7.0, ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	require.Equal(int64(3), page.Total, "9.0, 8.9 and 7.0 are all in range")

	page, err = engine.CVEs("scan.json", CVEFilter{ScoreStart: 7.0, ScoreEnd: 7.0}, PageInfo{})
	require.NoError(err)
	require.Equal(int64(1), page.Total)
	require.Equal("CVE-C", page.Data[0].NVDID)
}

func TestCVEsPackageFilter(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)
	engine := NewEngine(st)

	full, err := engine.CVEs("scan.json", CVEFilter{ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	zlibID := full.Data[len(full.Data)-1].PackageID

	page, err := engine.CVEs("scan.json", CVEFilter{PackageID: zlibID, ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	require.Equal(int64(2), page.Total)
	for _, row := range page.Data {
		require.Equal("zlib", row.Name)
	}
}

func TestIgnoredCVEs(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	page, err := NewEngine(st).IgnoredCVEs("scan.json", "", PageInfo{})
	require.NoError(err)
	require.Equal(int64(1), page.Total)
	require.Equal("CVE-D", page.Data[0].NVDID)
	require.Equal(cvecheck.StatusIgnored, page.Data[0].Status)
}

func TestPaginationIsConsistent(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)
	engine := NewEngine(st)

	full, err := engine.CVEs("scan.json", CVEFilter{ScoreEnd: 10}, PageInfo{})
	require.NoError(err)
	total := int(full.Total)

	for _, entries := range []int{1, 2, total, total + 1} {
		var collected []string
		for page := 1; ; page++ {
			result, err := engine.CVEs("scan.json", CVEFilter{ScoreEnd: 10}, PageInfo{Entries: entries, Page: page})
			require.NoError(err)
			require.Equal(full.Total, result.Total, "the total never depends on the page")
			if len(result.Data) == 0 {
				break
			}
			collected = append(collected, lo.Map(result.Data, func(r CVERow, _ int) string { return r.NVDID })...)
		}
		require.Equal(
			lo.Map(full.Data, func(r CVERow, _ int) string { return r.NVDID }),
			collected,
			"entries=%d must walk the full result in order", entries,
		)
	}
}

func TestPackagesRollupPaginates(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)
	engine := NewEngine(st)

	first, err := engine.Packages("scan.json", false, "", PageInfo{Entries: 1, Page: 1})
	require.NoError(err)
	require.Len(first.Data, 1)
	assert.Equal("busybox", first.Data[0].Name)

	second, err := engine.Packages("scan.json", false, "", PageInfo{Entries: 1, Page: 2})
	require.NoError(err)
	require.Len(second.Data, 1)
	assert.Equal("zlib", second.Data[0].Name)
	assert.Equal(first.Total, second.Total)
}

func TestNVDData(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)
	engine := NewEngine(st)

	page, err := engine.NVDData(NVDFilter{}, PageInfo{})
	require.NoError(err)
	assert.Equal(int64(2), page.Total, "only records with product rows appear")
	require.Len(page.Data, 2)
	assert.Equal("CVE-A", page.Data[0].ID, "sorted by id")
	assert.Equal("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", page.Data[0].VectorString)

	page, err = engine.NVDData(NVDFilter{MinScore: 8.9}, PageInfo{})
	require.NoError(err)
	require.Equal(int64(1), page.Total, "the minimum score bound is strict")
	require.Equal("CVE-A", page.Data[0].ID)

	page, err = engine.NVDData(NVDFilter{MinScore: 9.0}, PageInfo{})
	require.NoError(err)
	require.Zero(page.Total)

	page, err = engine.NVDData(NVDFilter{Product: "zlib"}, PageInfo{})
	require.NoError(err)
	require.Equal(int64(1), page.Total)
	require.Equal("CVE-B", page.Data[0].ID)
}

func TestNVDDataOnLegacySchema(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	require.NoError(st.DB().Migrator().DropColumn(&cvecheck.NVDRecord{}, "VECTORSTRING"))
	legacy := store.New(st.DB())
	require.False(legacy.HasVectorString())

	page, err := NewEngine(legacy).NVDData(NVDFilter{}, PageInfo{})
	require.NoError(err)
	require.Equal(int64(2), page.Total)
	require.Empty(page.Data[0].VectorString, "the column is omitted on legacy stores")
}

func TestProductsListing(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	page, err := NewEngine(st).Products("CVE-A", "", PageInfo{})
	require.NoError(err)
	require.Equal(int64(3), page.Total)

	versions := lo.Map(page.Data, func(p cvecheck.Product, _ int) string { return p.VersionStart })
	require.Equal([]string{"1.2", "1.9", "1.10"}, versions,
		"versions sort numerically, not as strings")
}

func TestSummarize(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	summary, err := Summarize(st, "scan.json")
	require.NoError(err)

	assert.Equal(1, summary.Status.Patched)
	assert.Equal(3, summary.Status.Unpatched)
	assert.Equal(1, summary.Status.Ignored)
	assert.Equal(1, summary.Status.Unknown, "packages without issues count as unknown")

	assert.Equal(1, summary.UnpatchedBySeverity.Critical)
	assert.Equal(1, summary.UnpatchedBySeverity.High)
	assert.Equal(1, summary.UnpatchedBySeverity.Medium)
	assert.Equal(0, summary.UnpatchedBySeverity.Low)

	assert.Equal(1, summary.AllBySeverity.Critical)
	assert.Equal(2, summary.AllBySeverity.High)
	assert.Equal(2, summary.AllBySeverity.Medium)
	assert.Equal(5, summary.AllBySeverity.Total())
}

func TestCVEsScoreBelowIsExclusive(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	require.NoError(st.CreateNVD(&cvecheck.NVDRecord{ID: "CVE-F", ScoreV3: "8.95", Vector: "NETWORK"}))
	scan, err := st.GetReportByFileName("scan.json")
	require.NoError(err)
	openssl, err := st.CreatePackage(&cvecheck.Package{Name: "openssl", Layer: "core", Version: "3.0", CVEReportID: scan.ID})
	require.NoError(err)
	_, err = st.CreateIssue(&cvecheck.Issue{Status: cvecheck.StatusUnpatched, PackageID: openssl, NVDID: "CVE-F", Link: "https://x/f"})
	require.NoError(err)

	engine := NewEngine(st)
	high, err := engine.CVEs("scan.json", CVEFilter{Status: cvecheck.StatusUnpatched, ScoreStart: 7.0, ScoreBelow: 9.0}, PageInfo{})
	require.NoError(err)
	ids := lo.Map(high.Data, func(r CVERow, _ int) string { return r.NVDID })
	assert.Contains(ids, "CVE-F", "scores between 8.9 and 9.0 stay in the high band")
	assert.NotContains(ids, "CVE-A", "a score of exactly 9.0 is critical, not high")

	var buf bytes.Buffer
	require.NoError(engine.RenderHTML("scan.json", &buf))
	assert.Contains(buf.String(), "CVE-F")
}

func TestRenderHTML(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)
	seedReport(t, st)

	var buf bytes.Buffer
	require.NoError(NewEngine(st).RenderHTML("scan.json", &buf))

	doc := buf.String()
	assert.Contains(doc, "<title>CVE Report scan.json</title>")
	assert.Contains(doc, "busybox")
	assert.Contains(doc, "Unpatched Critical CVEs")
	assert.Contains(doc, "CVE-A")
	assert.Contains(doc, "Ignored CVEs")
	assert.Contains(doc, "CVE-D")
}

func TestSeverityCountsBoundaries(t *testing.T) {
	assert := assert.New(t)

	cases := map[float64]func(SeverityCounts) int{
		9.0:  func(s SeverityCounts) int { return s.Critical },
		8.99: func(s SeverityCounts) int { return s.High },
		7.0:  func(s SeverityCounts) int { return s.High },
		6.99: func(s SeverityCounts) int { return s.Medium },
		4.0:  func(s SeverityCounts) int { return s.Medium },
		3.99: func(s SeverityCounts) int { return s.Low },
		0.1:  func(s SeverityCounts) int { return s.Low },
		0.09: func(s SeverityCounts) int { return s.None },
		0.0:  func(s SeverityCounts) int { return s.None },
	}

	for score, bucket := range cases {
		var counts SeverityCounts
		counts.Add(score)
		assert.Equal(1, bucket(counts), "score %v lands in the wrong bucket", score)
		assert.Equal(1, counts.Total())
	}
}
