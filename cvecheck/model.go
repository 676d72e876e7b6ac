package cvecheck

import "time"

// Table and column names are pinned to the legacy store schema so that
// databases written by earlier builds of the tool stay readable.

type CVEReport struct {
	ID       int64     `gorm:"column:ID;primaryKey;autoIncrement"`
	FileName string    `gorm:"column:FileName;index:ix_cve_reports_file_name"`
	Version  int       `gorm:"column:Version"`
	Date     time.Time `gorm:"column:Date"`
	Owner    string    `gorm:"column:Owner"`
}

func (CVEReport) TableName() string { return "CVEReports" }

type Package struct {
	ID          int64  `gorm:"column:ID;primaryKey;autoIncrement"`
	Name        string `gorm:"column:Name;index:ix_packages_name"`
	Layer       string `gorm:"column:Layer"`
	Version     string `gorm:"column:Version"`
	CVEReportID int64  `gorm:"column:CVEReportID;index:ix_packages_cve_report_id"`

	Report *CVEReport `gorm:"-"`
}

func (Package) TableName() string { return "Packages" }

type PackageProduct struct {
	ID           int64  `gorm:"column:ID;primaryKey;autoIncrement"`
	Product      string `gorm:"column:Product"`
	CVEsInRecord bool   `gorm:"column:CVEsInRecord"`
	PackageID    int64  `gorm:"column:PackageID;index:ix_package_products_package_id"`
}

func (PackageProduct) TableName() string { return "PackageProducts" }

// Issue statuses as they appear in cve-check scan reports. Storage keeps the
// status as free text, the constants only cover the values queries filter on.
const (
	StatusPatched   = "Patched"
	StatusUnpatched = "Unpatched"
	StatusIgnored   = "Ignored"
)

type Issue struct {
	ID        int64  `gorm:"column:ID;primaryKey;autoIncrement"`
	Status    string `gorm:"column:Status"`
	Link      string `gorm:"column:Link"`
	PackageID int64  `gorm:"column:PackageID;index:ix_issues_package_id"`
	NVDID     string `gorm:"column:NVDID;index:ix_issues_nvd_id"`

	Package *Package `gorm:"-"`
	// NVD is nil when NVDID does not resolve against the reference data.
	NVD *NVDRecord `gorm:"-"`
}

func (Issue) TableName() string { return "Issues" }

// NVDRecord is a CVE entry from the NVD-derived reference database, shared
// across reports. CVSS scores are kept as the decimal strings the feeds
// deliver; queries cast them when comparing.
type NVDRecord struct {
	ID       string    `gorm:"column:ID;primaryKey"`
	Summary  string    `gorm:"column:SUMMARY"`
	ScoreV2  string    `gorm:"column:SCOREV2"`
	ScoreV3  string    `gorm:"column:SCOREV3"`
	Modified time.Time `gorm:"column:MODIFIED"`
	Vector   string    `gorm:"column:VECTOR"`
	// VECTORSTRING only exists on stores created by newer schema versions;
	// the store probes for it once at open time.
	VectorString string `gorm:"column:VECTORSTRING"`
}

func (NVDRecord) TableName() string { return "NVD" }

// Product carries no surrogate key on purpose: many rows share one
// vulnerability id and dedup works by full-tuple equality. The field must not
// be called ID, or the ORM would infer a unique primary key on the column.
type Product struct {
	VulnerabilityID string `gorm:"column:ID;index:ix_products_id"`
	Vendor          string `gorm:"column:VENDOR"`
	Product         string `gorm:"column:PRODUCT"`
	VersionStart    string `gorm:"column:VERSION_START"`
	OperatorStart   string `gorm:"column:OPERATOR_START"`
	VersionEnd      string `gorm:"column:VERSION_END"`
	OperatorEnd     string `gorm:"column:OPERATOR_END"`
}

func (Product) TableName() string { return "PRODUCTS" }

// FullReport is a report hydrated with its complete package tree, as consumed
// by the summary computation and the HTML renderer.
type FullReport struct {
	CVEReport
	Packages []FullPackage
}

type FullPackage struct {
	Package
	Products []PackageProduct
	Issues   []Issue
}
