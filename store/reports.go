package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

// ErrReportHasPackages is returned by DeleteReport when the report still owns
// packages; deleting it would orphan them. Use cvecheck.DeleteReportData to
// remove a report together with its tree.
var ErrReportHasPackages = errors.New("report still has packages")

func (s *Store) CreateReport(report *cvecheck.CVEReport) (int64, error) {
	if err := s.db.Create(report).Error; err != nil {
		return 0, fmt.Errorf("could not create report %s: %w", report.FileName, err)
	}
	return report.ID, nil
}

func (s *Store) GetReport(id int64) (*cvecheck.CVEReport, error) {
	var report cvecheck.CVEReport
	err := s.db.Where(map[string]any{"ID": id}).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read report %d: %w", id, err)
	}
	return &report, nil
}

func (s *Store) GetReportByFileName(fileName string) (*cvecheck.CVEReport, error) {
	var report cvecheck.CVEReport
	err := s.db.Where(map[string]any{"FileName": fileName}).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read report %s: %w", fileName, err)
	}
	return &report, nil
}

// IsNewReport reports whether no report with this file name has been
// imported yet.
func (s *Store) IsNewReport(fileName string) (bool, error) {
	var count int64
	err := s.db.Model(&cvecheck.CVEReport{}).
		Where(map[string]any{"FileName": fileName}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("could not look up report %s: %w", fileName, err)
	}
	return count == 0, nil
}

func (s *Store) ListReportNames() ([]string, error) {
	var names []string
	err := s.db.Model(&cvecheck.CVEReport{}).
		Order("Date").
		Pluck("FileName", &names).Error
	if err != nil {
		return nil, fmt.Errorf("could not list reports: %w", err)
	}
	return names, nil
}

func (s *Store) UpdateReport(report *cvecheck.CVEReport) error {
	err := s.db.Save(report).Error
	if err != nil {
		return fmt.Errorf("could not update report %d: %w", report.ID, err)
	}
	return nil
}

func (s *Store) DeleteReport(id int64) error {
	var packages int64
	err := s.db.Model(&cvecheck.Package{}).
		Where(map[string]any{"CVEReportID": id}).
		Count(&packages).Error
	if err != nil {
		return fmt.Errorf("could not count packages of report %d: %w", id, err)
	}
	if packages > 0 {
		return ErrReportHasPackages
	}
	err = s.db.Where(map[string]any{"ID": id}).Delete(&cvecheck.CVEReport{}).Error
	if err != nil {
		return fmt.Errorf("could not delete report %d: %w", id, err)
	}
	return nil
}

// GetFullReport hydrates a report with its complete package tree: packages,
// their products, their issues, and each issue's NVD record where it
// resolves. The relationship graph has fixed shallow depth, so this stays
// bounded.
func (s *Store) GetFullReport(fileName string) (*cvecheck.FullReport, error) {
	report, err := s.GetReportByFileName(fileName)
	if err != nil {
		return nil, err
	}

	packages, err := s.GetPackagesOfReport(report.ID)
	if err != nil {
		return nil, err
	}

	full := cvecheck.FullReport{CVEReport: *report}
	for i := range packages {
		pkg := packages[i]
		pkg.Report = report

		products, err := s.GetPackageProductsOfPackage(pkg.ID)
		if err != nil {
			return nil, err
		}
		issues, err := s.GetIssuesOfPackage(pkg.ID)
		if err != nil {
			return nil, err
		}
		for j := range issues {
			issues[j].Package = &pkg
			if issues[j].NVDID == "" {
				continue
			}
			nvd, err := s.GetNVD(issues[j].NVDID)
			if errors.Is(err, ErrNotFound) {
				// reference data not imported for this id yet
				continue
			}
			if err != nil {
				return nil, err
			}
			issues[j].NVD = nvd
		}

		full.Packages = append(full.Packages, cvecheck.FullPackage{
			Package:  pkg,
			Products: products,
			Issues:   issues,
		})
	}

	return &full, nil
}
