package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

var (
	// ErrInvalidReport wraps every validation failure so callers can reject
	// a document without inspecting the detail.
	ErrInvalidReport = errors.New("invalid scan report")

	// ErrDuplicateReport means a report with the same file name was already
	// imported into the store.
	ErrDuplicateReport = errors.New("report already imported")
)

type ScanReport struct {
	Version  string
	Packages []ScanPackage
}

type ScanPackage struct {
	Name     string
	Layer    string
	Version  string
	Products []ScanProduct
	Issues   []ScanIssue
}

type ScanProduct struct {
	Product      string
	CVEsInRecord bool
}

type ScanIssue struct {
	ID           string
	Summary      string
	ScoreV2      string
	ScoreV3      string
	Vector       string
	VectorString string
	Status       string
	Link         string
	Detail       string
	Description  string
}

// ParseScanReport validates and decodes a cve-check scan document. The whole
// document is checked before anything is returned: every object may only
// carry keys from its fixed allow-list, and every allowed value must be a
// string. Any deviation fails the parse.
func ParseScanReport(data []byte) (*ScanReport, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	report := &ScanReport{}
	seenVersion, seenPackage := false, false
	for key, raw := range top {
		switch key {
		case "version":
			seenVersion = true
			value, err := stringValue(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: version: %w", ErrInvalidReport, err)
			}
			report.Version = value
		case "package":
			seenPackage = true
			var rawPackages []json.RawMessage
			if err := json.Unmarshal(raw, &rawPackages); err != nil {
				return nil, fmt.Errorf("%w: package is not an array: %w", ErrInvalidReport, err)
			}
			for i, rawPkg := range rawPackages {
				pkg, err := parseScanPackage(rawPkg)
				if err != nil {
					return nil, fmt.Errorf("%w: package %d: %w", ErrInvalidReport, i, err)
				}
				report.Packages = append(report.Packages, pkg)
			}
		default:
			return nil, fmt.Errorf("%w: unexpected key %q", ErrInvalidReport, key)
		}
	}
	if !seenVersion {
		return nil, fmt.Errorf("%w: missing key %q", ErrInvalidReport, "version")
	}
	if !seenPackage {
		return nil, fmt.Errorf("%w: missing key %q", ErrInvalidReport, "package")
	}

	return report, nil
}

func parseScanPackage(raw json.RawMessage) (pkg ScanPackage, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return pkg, fmt.Errorf("not an object: %w", err)
	}

	for key, rawValue := range fields {
		switch key {
		case "name", "layer", "version":
			value, err := stringValue(rawValue)
			if err != nil {
				return pkg, fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case "name":
				pkg.Name = value
			case "layer":
				pkg.Layer = value
			case "version":
				pkg.Version = value
			}
		case "products":
			var rawProducts []json.RawMessage
			if err := json.Unmarshal(rawValue, &rawProducts); err != nil {
				return pkg, fmt.Errorf("products is not an array: %w", err)
			}
			for i, rawProduct := range rawProducts {
				product, err := parseScanProduct(rawProduct)
				if err != nil {
					return pkg, fmt.Errorf("product %d: %w", i, err)
				}
				pkg.Products = append(pkg.Products, product)
			}
		case "issue":
			var rawIssues []json.RawMessage
			if err := json.Unmarshal(rawValue, &rawIssues); err != nil {
				return pkg, fmt.Errorf("issue is not an array: %w", err)
			}
			for i, rawIssue := range rawIssues {
				issue, err := parseScanIssue(rawIssue)
				if err != nil {
					return pkg, fmt.Errorf("issue %d: %w", i, err)
				}
				pkg.Issues = append(pkg.Issues, issue)
			}
		default:
			return pkg, fmt.Errorf("unexpected key %q", key)
		}
	}

	return pkg, nil
}

func parseScanProduct(raw json.RawMessage) (product ScanProduct, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return product, fmt.Errorf("not an object: %w", err)
	}

	for key, rawValue := range fields {
		value, err := stringValue(rawValue)
		if err != nil {
			return product, fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "product":
			product.Product = value
		case "cvesInRecord":
			product.CVEsInRecord = value == "Yes"
		default:
			return product, fmt.Errorf("unexpected key %q", key)
		}
	}

	return product, nil
}

var scanIssueFields = map[string]func(*ScanIssue, string){
	"id":           func(i *ScanIssue, v string) { i.ID = v },
	"summary":      func(i *ScanIssue, v string) { i.Summary = v },
	"scorev2":      func(i *ScanIssue, v string) { i.ScoreV2 = v },
	"scorev3":      func(i *ScanIssue, v string) { i.ScoreV3 = v },
	"vector":       func(i *ScanIssue, v string) { i.Vector = v },
	"vectorString": func(i *ScanIssue, v string) { i.VectorString = v },
	"status":       func(i *ScanIssue, v string) { i.Status = v },
	"link":         func(i *ScanIssue, v string) { i.Link = v },
	"detail":       func(i *ScanIssue, v string) { i.Detail = v },
	"description":  func(i *ScanIssue, v string) { i.Description = v },
}

func parseScanIssue(raw json.RawMessage) (issue ScanIssue, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return issue, fmt.Errorf("not an object: %w", err)
	}

	for key, rawValue := range fields {
		assign, ok := scanIssueFields[key]
		if !ok {
			return issue, fmt.Errorf("unexpected key %q", key)
		}
		value, err := stringValue(rawValue)
		if err != nil {
			return issue, fmt.Errorf("%s: %w", key, err)
		}
		assign(&issue, value)
	}

	return issue, nil
}

// stringValue rejects JSON null explicitly; unmarshalling null into a plain
// string would silently succeed.
func stringValue(raw json.RawMessage) (string, error) {
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil || value == nil {
		return "", errors.New("value is not a string")
	}
	return *value, nil
}

// ImportReport reads, validates and stores a scan-report file. The report and
// its whole package tree are written in one transaction; a validation failure
// or a duplicate file name leaves the store untouched.
func ImportReport(st *store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read report file: %w", err)
	}

	report, err := ParseScanReport(data)
	if err != nil {
		return err
	}

	fileName := filepath.Base(path)
	isNew, err := st.IsNewReport(fileName)
	if err != nil {
		return fmt.Errorf("could not check for existing report: %w", err)
	}
	if !isNew {
		return fmt.Errorf("%w: %s", ErrDuplicateReport, fileName)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("could not stat report file: %w", err)
	}

	version, _ := strconv.Atoi(report.Version)
	row := cvecheck.CVEReport{
		FileName: fileName,
		Version:  version,
		Date:     info.ModTime().UTC(),
		Owner:    fileOwner(info),
	}

	slog.Info("Importing scan report", "file", fileName, "packages", len(report.Packages))

	return st.Transaction(func(tx *store.Store) error {
		reportID, err := tx.CreateReport(&row)
		if err != nil {
			return fmt.Errorf("could not create report: %w", err)
		}

		for _, pkg := range report.Packages {
			packageID, err := tx.CreatePackage(&cvecheck.Package{
				Name:        pkg.Name,
				Layer:       pkg.Layer,
				Version:     pkg.Version,
				CVEReportID: reportID,
			})
			if err != nil {
				return fmt.Errorf("could not create package %s: %w", pkg.Name, err)
			}

			for _, product := range pkg.Products {
				_, err := tx.CreatePackageProduct(&cvecheck.PackageProduct{
					Product:      product.Product,
					CVEsInRecord: product.CVEsInRecord,
					PackageID:    packageID,
				})
				if err != nil {
					return fmt.Errorf("could not create product %s of package %s: %w", product.Product, pkg.Name, err)
				}
			}

			for _, issue := range pkg.Issues {
				nvdID, err := resolveNVDID(tx, issue.ID)
				if err != nil {
					return err
				}
				_, err = tx.CreateIssue(&cvecheck.Issue{
					Status:    issue.Status,
					Link:      issue.Link,
					PackageID: packageID,
					NVDID:     nvdID,
				})
				if err != nil {
					return fmt.Errorf("could not create issue %s of package %s: %w", issue.ID, pkg.Name, err)
				}
			}
		}

		return nil
	})
}

// resolveNVDID looks the declared vulnerability id up in the reference data.
// Records are never created here; an id the reference import has not seen yet
// stays unresolved.
func resolveNVDID(tx *store.Store, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	_, err := tx.GetNVD(id)
	if errors.Is(err, store.ErrNotFound) {
		slog.Debug("Vulnerability id not in reference data", "id", id)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("could not resolve vulnerability %s: %w", id, err)
	}
	return id, nil
}

func fileOwner(info os.FileInfo) string {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	owner, err := user.LookupId(strconv.FormatUint(uint64(stat.Uid), 10))
	if err != nil {
		return strconv.FormatUint(uint64(stat.Uid), 10)
	}
	return owner.Username
}
