// Package store provides typed access to the local CVE report database.
// One Store wraps one open SQLite handle; importers run multi-step writes
// through Transaction so every import is all-or-nothing.
package store

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
	// hasVectorString records whether the NVD table carries the VECTORSTRING
	// column, probed once when the store is opened. Stores created by older
	// schema versions lack it.
	hasVectorString bool
}

func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", dbPath, err)
	}

	return New(db), nil
}

// New wraps an already open database handle. The VECTORSTRING probe happens
// here, so callers opening legacy stores get the reduced column set without
// any per-query detection.
func New(db *gorm.DB) *Store {
	return &Store{
		db:              db,
		hasVectorString: db.Migrator().HasColumn(&cvecheck.NVDRecord{}, "VECTORSTRING"),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) HasVectorString() bool { return s.hasVectorString }

// Migrate creates or updates the schema and refreshes the VECTORSTRING flag,
// since migration adds the column on stores that predate it.
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&cvecheck.CVEReport{},
		&cvecheck.Package{},
		&cvecheck.PackageProduct{},
		&cvecheck.Issue{},
		&cvecheck.NVDRecord{},
		&cvecheck.Product{},
	)
	if err != nil {
		return fmt.Errorf("could not migrate schema: %w", err)
	}
	s.hasVectorString = s.db.Migrator().HasColumn(&cvecheck.NVDRecord{}, "VECTORSTRING")
	return nil
}

// Transaction runs fn against a store bound to one database transaction.
// Any error from fn rolls the whole transaction back.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, hasVectorString: s.hasVectorString})
	})
}
