package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

func (s *Store) CreateIssue(issue *cvecheck.Issue) (int64, error) {
	if err := s.db.Create(issue).Error; err != nil {
		return 0, fmt.Errorf("could not create issue for package %d: %w", issue.PackageID, err)
	}
	return issue.ID, nil
}

// GetIssue reads an issue and hydrates its package and, when the NVDID
// resolves against the reference data, its NVD record. A missing record is
// not an error; the reference stays nil.
func (s *Store) GetIssue(id int64) (*cvecheck.Issue, error) {
	var issue cvecheck.Issue
	err := s.db.Where(map[string]any{"ID": id}).First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read issue %d: %w", id, err)
	}

	pkg, err := s.GetPackage(issue.PackageID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	issue.Package = pkg

	if issue.NVDID != "" {
		nvd, err := s.GetNVD(issue.NVDID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		issue.NVD = nvd
	}
	return &issue, nil
}

func (s *Store) UpdateIssue(issue *cvecheck.Issue) error {
	if err := s.db.Save(issue).Error; err != nil {
		return fmt.Errorf("could not update issue %d: %w", issue.ID, err)
	}
	return nil
}

func (s *Store) DeleteIssue(id int64) error {
	err := s.db.Where(map[string]any{"ID": id}).Delete(&cvecheck.Issue{}).Error
	if err != nil {
		return fmt.Errorf("could not delete issue %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetIssuesOfPackage(packageID int64) ([]cvecheck.Issue, error) {
	var issues []cvecheck.Issue
	err := s.db.Where(map[string]any{"PackageID": packageID}).Find(&issues).Error
	if err != nil {
		return nil, fmt.Errorf("could not read issues of package %d: %w", packageID, err)
	}
	return issues, nil
}
