package importer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

func newSourceDB(t *testing.T, records []cvecheck.NVDRecord, products []cvecheck.Product) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cvedb.db")
	src, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, src.Migrate())

	for i := range records {
		require.NoError(t, src.CreateNVD(&records[i]))
	}
	for i := range products {
		require.NoError(t, src.CreateProduct(&products[i]))
	}
	return path
}

func TestImportCVEDB(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	st := newTestStore(t)

	path := newSourceDB(t,
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

	require.NoError(ImportCVEDB(st, path))

	record, err := st.GetNVD("CVE-2024-0001")
	require.NoError(err)
	assert.Equal("9.8", record.ScoreV3)

	products, err := st.GetProductsOfVulnerability("CVE-2024-0001")
	require.NoError(err)
	assert.Len(products, 1)
}

func TestImportCVEDBIsIdempotent(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)

	path := newSourceDB(t,
		[]cvecheck.NVDRecord{
			{ID: "CVE-2024-0001", ScoreV3: "9.8", Modified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		[]cvecheck.Product{
			{VulnerabilityID: "CVE-2024-0001", Vendor: "acme", Product: "widget"},
		},
	)

	require.NoError(ImportCVEDB(st, path))
	require.NoError(ImportCVEDB(st, path))

	records, err := st.GetAllNVDs()
	require.NoError(err)
	require.Len(records, 1)

	products, err := st.GetAllProducts()
	require.NoError(err)
	require.Len(products, 1, "re-imported product tuples must not duplicate")
}

func TestImportCVEDBDoesNotRegressNewerRecords(t *testing.T) {
	require := require.New(t)
	st := newTestStore(t)

	require.NoError(st.CreateNVD(&cvecheck.NVDRecord{
		ID:       "CVE-2024-0001",
		Summary:  "current",
		ScoreV3:  "9.8",
		Modified: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	path := newSourceDB(t,
		[]cvecheck.NVDRecord{
			{
				ID:       "CVE-2024-0001",
				Summary:  "stale",
				ScoreV3:  "5.0",
				Modified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		nil,
	)

	require.NoError(ImportCVEDB(st, path))

	record, err := st.GetNVD("CVE-2024-0001")
	require.NoError(err)
	require.Equal("current", record.Summary)
	require.Equal("9.8", record.ScoreV3)
}

func TestImportCVEDBMissingFile(t *testing.T) {
	st := newTestStore(t)

	err := ImportCVEDB(st, filepath.Join(t.TempDir(), "does-not-exist.db"))
	require.Error(t, err)
}
