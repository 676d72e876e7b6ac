package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

var ErrEmptyVulnerabilityID = errors.New("vulnerability id must not be empty")

// CreateNVD inserts a vulnerability record. The key is the externally
// supplied CVE id, never generated here.
func (s *Store) CreateNVD(record *cvecheck.NVDRecord) error {
	if record.ID == "" {
		return ErrEmptyVulnerabilityID
	}
	tx := s.db
	if !s.hasVectorString {
		tx = tx.Omit("VECTORSTRING")
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("could not create NVD record %s: %w", record.ID, err)
	}
	return nil
}

func (s *Store) GetNVD(id string) (*cvecheck.NVDRecord, error) {
	var record cvecheck.NVDRecord
	err := s.db.Where(map[string]any{"ID": id}).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read NVD record %s: %w", id, err)
	}
	return &record, nil
}

// UpdateNVD replaces a record's fields, guarded by recency: a record is never
// regressed to an older MODIFIED timestamp. An update carrying an older
// timestamp matches no row and is silently skipped, which keeps repeated
// imports of the same reference snapshot idempotent.
func (s *Store) UpdateNVD(record *cvecheck.NVDRecord) error {
	if record.ID == "" {
		return ErrEmptyVulnerabilityID
	}
	values := map[string]any{
		"SUMMARY":  record.Summary,
		"SCOREV2":  record.ScoreV2,
		"SCOREV3":  record.ScoreV3,
		"MODIFIED": record.Modified,
		"VECTOR":   record.Vector,
	}
	if s.hasVectorString {
		values["VECTORSTRING"] = record.VectorString
	}
	err := s.db.Model(&cvecheck.NVDRecord{}).
		Where("ID = ? AND MODIFIED <= ?", record.ID, record.Modified).
		Updates(values).Error
	if err != nil {
		return fmt.Errorf("could not update NVD record %s: %w", record.ID, err)
	}
	return nil
}

func (s *Store) DeleteNVD(id string) error {
	if id == "" {
		return ErrEmptyVulnerabilityID
	}
	err := s.db.Where(map[string]any{"ID": id}).Delete(&cvecheck.NVDRecord{}).Error
	if err != nil {
		return fmt.Errorf("could not delete NVD record %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetAllNVDs() ([]cvecheck.NVDRecord, error) {
	var records []cvecheck.NVDRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("could not read NVD records: %w", err)
	}
	return records, nil
}
