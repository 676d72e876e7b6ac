package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

// Engine builds the listing queries against one open store. Every listing
// comes back as a Paged value whose Total is counted over the identical
// unpaged query, so page math and page content can never disagree.
type Engine struct {
	store *store.Store
}

func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st}
}

// PackageRollup is one row of the packages listing: the package plus its
// issue counts bucketed by CVSSv3 severity and by status.
type PackageRollup struct {
	PackageID int64  `gorm:"column:PackageID"`
	Name      string `gorm:"column:Name"`
	Layer     string `gorm:"column:Layer"`
	Version   string `gorm:"column:Version"`
	Critical  int    `gorm:"column:Critical"`
	High      int    `gorm:"column:High"`
	Medium    int    `gorm:"column:Medium"`
	Low       int    `gorm:"column:Low"`
	None      int    `gorm:"column:None"`
	Unpatched int    `gorm:"column:Unpatched"`
	Patched   int    `gorm:"column:Patched"`
	Ignored   int    `gorm:"column:Ignored"`
}

// severityCount renders a correlated subquery counting a package's issues
// whose CVSSv3 score falls in one severity band. The table alias must be
// unique per band within the surrounding SELECT.
func severityCount(alias, scoreCond string, unpatchedOnly bool) string {
	return fmt.Sprintf(
		"(SELECT COUNT(%[1]s.ID) FROM NVD %[1]s, Issues I "+
			"WHERE %[1]s.ID = I.NVDID AND I.PackageID = P.ID %[2]s"+
			"AND %[3]s)",
		alias,
		lo.Ternary(unpatchedOnly, "AND I.Status = 'Unpatched' ", ""),
		scoreCond,
	)
}

func statusCount(alias, status string) string {
	return fmt.Sprintf(
		"(SELECT COUNT(%[1]s.ID) FROM NVD %[1]s, Issues I "+
			"WHERE %[1]s.ID = I.NVDID AND I.PackageID = P.ID "+
			"AND I.Status = '%[2]s')",
		alias, status,
	)
}

// Packages returns the per-package severity rollup of one report. Packages
// whose five severity buckets are all zero are suppressed entirely; there is
// nothing to report about them. With unpatchedOnly only unpatched issues
// count towards the severity buckets, the status counts stay unfiltered.
func (e *Engine) Packages(reportName string, unpatchedOnly bool, filter string, page PageInfo) (Paged[PackageRollup], error) {
	inner := "SELECT P.ID AS PackageID, P.Name AS Name, P.Layer AS Layer, P.Version AS Version, " +
		severityCount("NC", "CAST(NC.SCOREV3 AS NUMERIC) >= 9.0", unpatchedOnly) + " AS Critical, " +
		severityCount("NH", "CAST(NH.SCOREV3 AS NUMERIC) >= 7.0 AND CAST(NH.SCOREV3 AS NUMERIC) < 9.0", unpatchedOnly) + " AS High, " +
		severityCount("NM", "CAST(NM.SCOREV3 AS NUMERIC) >= 4.0 AND CAST(NM.SCOREV3 AS NUMERIC) < 7.0", unpatchedOnly) + " AS Medium, " +
		severityCount("NL", "CAST(NL.SCOREV3 AS NUMERIC) >= 0.1 AND CAST(NL.SCOREV3 AS NUMERIC) < 4.0", unpatchedOnly) + " AS Low, " +
		severityCount("NN", "CAST(NN.SCOREV3 AS NUMERIC) < 0.1", unpatchedOnly) + " AS None, " +
		statusCount("NU", cvecheck.StatusUnpatched) + " AS Unpatched, " +
		statusCount("NP", cvecheck.StatusPatched) + " AS Patched, " +
		statusCount("NI", cvecheck.StatusIgnored) + " AS Ignored " +
		"FROM Packages P " +
		"INNER JOIN CVEReports C ON C.ID = P.CVEReportID AND C.FileName = ? "
	args := []any{reportName}

	if filter != "" {
		inner += "WHERE P.Name LIKE ? "
		args = append(args, likePattern(filter))
	}

	// The bucket aliases only exist in the result set, so the suppression
	// guard goes on a wrapping query instead of the inner WHERE.
	guarded := "SELECT * FROM (" + inner + ") " +
		"WHERE Critical != 0 OR High != 0 OR Medium != 0 OR Low != 0 OR None != 0 "

	total, err := e.count(guarded, args)
	if err != nil {
		return Paged[PackageRollup]{}, err
	}

	query := guarded + "ORDER BY Critical DESC, High DESC, Medium DESC, Low DESC, None DESC "
	query, args = paginate(query, args, page)

	var rows []PackageRollup
	if err := e.store.DB().Raw(query, args...).Scan(&rows).Error; err != nil {
		return Paged[PackageRollup]{}, fmt.Errorf("could not query package rollup: %w", err)
	}

	return NewPaged(page, total, rows), nil
}

// CVERow is one row of the CVE listings: a (package, issue) pair joined to
// its vulnerability record.
type CVERow struct {
	PackageID int64   `gorm:"column:PID"`
	Name      string  `gorm:"column:Name"`
	Layer     string  `gorm:"column:Layer"`
	Version   string  `gorm:"column:Version"`
	IssueID   int64   `gorm:"column:IID"`
	Status    string  `gorm:"column:Status"`
	NVDID     string  `gorm:"column:NVDID"`
	Score     float64 `gorm:"column:CVSS3Score"`
	Vector    string  `gorm:"column:Vector"`
	Link      string  `gorm:"column:Link"`
}

// CVEFilter narrows the CVE listing. The zero PackageID means all packages;
// ScoreStart and ScoreEnd bound the CVSSv3 score inclusively on both ends.
// A non-zero ScoreBelow replaces ScoreEnd with an exclusive upper bound.
type CVEFilter struct {
	PackageID  int64
	Status     string
	Vector     string
	ScoreStart float64
	ScoreEnd   float64
	ScoreBelow float64
	Filter     string
}

const cveSelect = "SELECT DISTINCT P.ID AS PID, P.Name, P.Layer, P.Version, " +
	"I.ID AS IID, I.Status, I.NVDID, CAST(N.SCOREV3 AS NUMERIC) AS CVSS3Score, " +
	"N.VECTOR AS Vector, I.Link " +
	"FROM Packages P, CVEReports C, Issues I, NVD N " +
	"WHERE C.FileName = ? " +
	"AND P.CVEReportID = C.ID " +
	"AND I.PackageID = P.ID " +
	"AND I.NVDID = N.ID "

// CVEs lists a report's issues joined to their vulnerability records, sorted
// by package name, layer, status and score.
func (e *Engine) CVEs(reportName string, f CVEFilter, page PageInfo) (Paged[CVERow], error) {
	body := cveSelect
	args := []any{reportName}

	if f.PackageID != 0 {
		body += "AND P.ID = ? "
		args = append(args, f.PackageID)
	}
	if f.Status != "" {
		body += "AND I.Status = ? "
		args = append(args, f.Status)
	}
	if f.Vector != "" {
		body += "AND N.VECTOR = ? "
		args = append(args, f.Vector)
	}
	if f.ScoreBelow > 0 {
		body += "AND CAST(N.SCOREV3 AS NUMERIC) >= ? AND CAST(N.SCOREV3 AS NUMERIC) < ? "
		args = append(args, f.ScoreStart, f.ScoreBelow)
	} else {
		body += "AND CAST(N.SCOREV3 AS NUMERIC) >= ? AND CAST(N.SCOREV3 AS NUMERIC) <= ? "
		args = append(args, f.ScoreStart, f.ScoreEnd)
	}
	if f.Filter != "" {
		body += "AND P.Name LIKE ? "
		args = append(args, likePattern(f.Filter))
	}

	total, err := e.count(body, args)
	if err != nil {
		return Paged[CVERow]{}, err
	}

	query := body + "ORDER BY P.Name, P.Layer, I.Status, CVSS3Score "
	query, args = paginate(query, args, page)

	var rows []CVERow
	if err := e.store.DB().Raw(query, args...).Scan(&rows).Error; err != nil {
		return Paged[CVERow]{}, fmt.Errorf("could not query CVEs: %w", err)
	}

	return NewPaged(page, total, rows), nil
}

// IgnoredCVEs lists a report's ignored issues, sorted like CVEs but with the
// score descending.
func (e *Engine) IgnoredCVEs(reportName string, filter string, page PageInfo) (Paged[CVERow], error) {
	body := cveSelect + "AND I.Status = ? "
	args := []any{reportName, cvecheck.StatusIgnored}

	if filter != "" {
		body += "AND P.Name LIKE ? "
		args = append(args, likePattern(filter))
	}

	total, err := e.count(body, args)
	if err != nil {
		return Paged[CVERow]{}, err
	}

	query := body + "ORDER BY P.Name, P.Layer, I.Status, CVSS3Score DESC "
	query, args = paginate(query, args, page)

	var rows []CVERow
	if err := e.store.DB().Raw(query, args...).Scan(&rows).Error; err != nil {
		return Paged[CVERow]{}, fmt.Errorf("could not query ignored CVEs: %w", err)
	}

	return NewPaged(page, total, rows), nil
}

type NVDRow struct {
	ID           string    `gorm:"column:ID"`
	Summary      string    `gorm:"column:SUMMARY"`
	ScoreV2      string    `gorm:"column:SCOREV2"`
	ScoreV3      string    `gorm:"column:SCOREV3"`
	Modified     time.Time `gorm:"column:MODIFIED"`
	Vector       string    `gorm:"column:VECTOR"`
	VectorString string    `gorm:"column:VECTORSTRING"`
}

// NVDFilter narrows the reference-data listing. MinScore is a strict
// lower bound; Filter substring-matches the id or the summary.
type NVDFilter struct {
	Product  string
	Vector   string
	MinScore float64
	Filter   string
}

// NVDData lists vulnerability records that affect at least one known
// product. VECTORSTRING is selected only on stores whose schema carries it.
func (e *Engine) NVDData(f NVDFilter, page PageInfo) (Paged[NVDRow], error) {
	columns := "N.ID, N.SUMMARY, N.SCOREV2, N.SCOREV3, N.MODIFIED, N.VECTOR"
	if e.store.HasVectorString() {
		columns += ", N.VECTORSTRING"
	}

	body := "SELECT DISTINCT " + columns + " " +
		"FROM NVD N, PRODUCTS P " +
		"WHERE N.ID = P.ID " +
		"AND CAST(N.SCOREV3 AS NUMERIC) > ? "
	args := []any{f.MinScore}

	if f.Product != "" {
		body += "AND P.PRODUCT = ? "
		args = append(args, f.Product)
	}
	if f.Vector != "" {
		body += "AND N.VECTOR = ? "
		args = append(args, f.Vector)
	}
	if f.Filter != "" {
		body += "AND (N.ID LIKE ? OR N.SUMMARY LIKE ?) "
		pattern := likePattern(f.Filter)
		args = append(args, pattern, pattern)
	}

	total, err := e.count(body, args)
	if err != nil {
		return Paged[NVDRow]{}, err
	}

	query := body + "ORDER BY N.ID "
	query, args = paginate(query, args, page)

	var rows []NVDRow
	if err := e.store.DB().Raw(query, args...).Scan(&rows).Error; err != nil {
		return Paged[NVDRow]{}, fmt.Errorf("could not query NVD data: %w", err)
	}

	return NewPaged(page, total, rows), nil
}

// Products lists the version-range tuples of one vulnerability record.
// Filter substring-matches the id, the vendor or the product name.
func (e *Engine) Products(vulnerabilityID string, filter string, page PageInfo) (Paged[cvecheck.Product], error) {
	body := "SELECT DISTINCT P.* FROM PRODUCTS P WHERE P.ID = ? "
	args := []any{vulnerabilityID}

	if filter != "" {
		body += "AND (P.ID LIKE ? OR P.VENDOR LIKE ? OR P.PRODUCT LIKE ?) "
		pattern := likePattern(filter)
		args = append(args, pattern, pattern, pattern)
	}

	total, err := e.count(body, args)
	if err != nil {
		return Paged[cvecheck.Product]{}, err
	}

	query := body + "ORDER BY VENDOR, PRODUCT, VERSION_START, VERSION_END "
	query, args = paginate(query, args, page)

	var rows []cvecheck.Product
	if err := e.store.DB().Raw(query, args...).Scan(&rows).Error; err != nil {
		return Paged[cvecheck.Product]{}, fmt.Errorf("could not query products: %w", err)
	}

	// String ordering puts 1.10 before 1.9, so the page is re-sorted with
	// the version comparator. CompareVersions returns -1 for the larger
	// version; ascending order therefore keeps i first on a positive result.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Vendor != rows[j].Vendor {
			return rows[i].Vendor < rows[j].Vendor
		}
		if rows[i].Product != rows[j].Product {
			return rows[i].Product < rows[j].Product
		}
		if c := cvecheck.CompareVersions(rows[i].VersionStart, rows[j].VersionStart); c != 0 {
			return c > 0
		}
		return cvecheck.CompareVersions(rows[i].VersionEnd, rows[j].VersionEnd) > 0
	})

	return NewPaged(page, total, rows), nil
}

// count wraps the unpaged listing body in a COUNT so Total always agrees
// with what the unlimited query would return.
func (e *Engine) count(body string, args []any) (int64, error) {
	var total int64
	err := e.store.DB().
		Raw("SELECT COUNT(*) FROM ("+body+")", args...).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("could not count rows: %w", err)
	}
	return total, nil
}

func paginate(query string, args []any, page PageInfo) (string, []any) {
	if !page.Limited() {
		return query, args
	}
	return query + "LIMIT ? OFFSET ?", append(args, page.Entries, page.Offset())
}

func likePattern(filter string) string {
	return "%" + filter + "%"
}
