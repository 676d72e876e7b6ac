package importer

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/rdecicco/cvecheckreport/store"
)

// ImportCVEDB merges a cve-check reference database file into the local
// store. Vulnerability records are upserted with the recency guard, so a
// record already present with a newer MODIFIED timestamp is left alone, and
// product tuples are inserted only when no identical tuple exists. Running
// the same merge twice is a no-op. The whole merge is one transaction.
func ImportCVEDB(st *store.Store, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("could not access reference database: %w", err)
	}

	srcDB, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		SkipDefaultTransaction: true,
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("could not open reference database %s: %w", path, err)
	}
	defer func() {
		if sqlDB, err := srcDB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// The source carries its own schema version and is probed independently
	// of the local store.
	src := store.New(srcDB)

	records, err := src.GetAllNVDs()
	if err != nil {
		return fmt.Errorf("could not read reference vulnerabilities: %w", err)
	}
	products, err := src.GetAllProducts()
	if err != nil {
		return fmt.Errorf("could not read reference products: %w", err)
	}

	slog.Info("Merging reference database",
		"path", path,
		"vulnerabilities", len(records),
		"products", len(products),
	)

	return st.Transaction(func(tx *store.Store) error {
		for _, record := range records {
			record := record
			if err := upsertNVD(tx, &record); err != nil {
				return err
			}
		}

		for _, product := range products {
			product := product
			if err := insertProductOnce(tx, &product); err != nil {
				return err
			}
		}

		return nil
	})
}
