package cvecheck_test

import (
	"path/filepath"
	"testing"

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

func TestDeleteReportData(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)

	reportID, err := st.CreateReport(&cvecheck.CVEReport{FileName: "scan.json"})
	require.NoError(err)
	packageID, err := st.CreatePackage(&cvecheck.Package{Name: "busybox", CVEReportID: reportID})
	require.NoError(err)
	_, err = st.CreatePackageProduct(&cvecheck.PackageProduct{Product: "busybox", PackageID: packageID})
	require.NoError(err)
	_, err = st.CreateIssue(&cvecheck.Issue{Status: cvecheck.StatusUnpatched, PackageID: packageID, NVDID: "CVE-2024-0001"})
	require.NoError(err)
	require.NoError(st.CreateNVD(&cvecheck.NVDRecord{ID: "CVE-2024-0001", ScoreV3: "9.8"}))

	require.NoError(cvecheck.DeleteReportData("scan.json", false, st.DB()))

	_, err = st.GetReport(reportID)
	require.ErrorIs(err, store.ErrNotFound)
	_, err = st.GetPackage(packageID)
	require.ErrorIs(err, store.ErrNotFound)

	// reference data is shared across reports and survives the cleanup
	_, err = st.GetNVD("CVE-2024-0001")
	require.NoError(err)
}

func TestDeleteReportDataDryRun(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)

	reportID, err := st.CreateReport(&cvecheck.CVEReport{FileName: "scan.json"})
	require.NoError(err)
	packageID, err := st.CreatePackage(&cvecheck.Package{Name: "busybox", CVEReportID: reportID})
	require.NoError(err)

	require.NoError(cvecheck.DeleteReportData("scan.json", true, st.DB()))

	_, err = st.GetReport(reportID)
	require.NoError(err)
	_, err = st.GetPackage(packageID)
	require.NoError(err)
}

func TestDeleteVulnerabilityData(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)

	require.NoError(st.CreateNVD(&cvecheck.NVDRecord{ID: "CVE-2024-0001", ScoreV3: "9.8"}))
	require.NoError(st.CreateProduct(&cvecheck.Product{VulnerabilityID: "CVE-2024-0001", Vendor: "acme", Product: "widget"}))
	reportID, err := st.CreateReport(&cvecheck.CVEReport{FileName: "scan.json"})
	require.NoError(err)
	packageID, err := st.CreatePackage(&cvecheck.Package{Name: "busybox", CVEReportID: reportID})
	require.NoError(err)
	issueID, err := st.CreateIssue(&cvecheck.Issue{Status: cvecheck.StatusUnpatched, PackageID: packageID, NVDID: "CVE-2024-0001"})
	require.NoError(err)

	require.NoError(cvecheck.DeleteVulnerabilityData("CVE-2024-0001", false, st.DB()))

	_, err = st.GetNVD("CVE-2024-0001")
	require.ErrorIs(err, store.ErrNotFound)
	products, err := st.GetProductsOfVulnerability("CVE-2024-0001")
	require.NoError(err)
	require.Empty(products)

	// the issue keeps its reference and now resolves to nothing
	issue, err := st.GetIssue(issueID)
	require.NoError(err)
	require.Equal("CVE-2024-0001", issue.NVDID)
	require.Nil(issue.NVD)
}

func TestDeleteVulnerabilityDataUnknownID(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)

	err := cvecheck.DeleteVulnerabilityData("CVE-0000-0000", false, st.DB())
	require.Error(err)
}
