package cvecheck

import (
	"fmt"

	"gorm.io/gorm"
)

// DeleteReportData removes an imported report together with its packages,
// package products and issues, in one transaction. NVD records and PRODUCTS
// rows are reference data shared across reports and stay untouched. With
// dryRun only the record counts are printed.
func DeleteReportData(
	reportName string,
	dryRun bool,
	db *gorm.DB,
) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var report CVEReport
		err := tx.Where(map[string]any{"FileName": reportName}).First(&report).Error
		if err != nil {
			return fmt.Errorf("could not find report %s: %w", reportName, err)
		}

		var packages []Package
		err = tx.Where(map[string]any{"CVEReportID": report.ID}).Find(&packages).Error
		if err != nil {
			return fmt.Errorf("could not find packages: %w", err)
		}

		packageIDs := make([]int64, 0, len(packages))
		for _, pkg := range packages {
			packageIDs = append(packageIDs, pkg.ID)
		}

		var issues, products int64
		if len(packageIDs) > 0 {
			tx.Model(&Issue{}).Where("PackageID IN ?", packageIDs).Count(&issues)
			tx.Model(&PackageProduct{}).Where("PackageID IN ?", packageIDs).Count(&products)
		}

		fmt.Printf("Found %d packages\n", len(packages))
		fmt.Printf("Found %d issues\n", issues)
		fmt.Printf("Found %d package products\n", products)

		if dryRun {
			return nil
		}

		fmt.Printf("Deleting records for %s\n", reportName)
		if len(packageIDs) > 0 {
			if err := tx.Where("PackageID IN ?", packageIDs).Delete(&Issue{}).Error; err != nil {
				return fmt.Errorf("could not delete issues: %w", err)
			}
			if err := tx.Where("PackageID IN ?", packageIDs).Delete(&PackageProduct{}).Error; err != nil {
				return fmt.Errorf("could not delete package products: %w", err)
			}
			if err := tx.Where("CVEReportID = ?", report.ID).Delete(&Package{}).Error; err != nil {
				return fmt.Errorf("could not delete packages: %w", err)
			}
		}
		if err := tx.Where("ID = ?", report.ID).Delete(&CVEReport{}).Error; err != nil {
			return fmt.Errorf("could not delete report: %w", err)
		}
		return nil
	})
}

// DeleteVulnerabilityData removes one reference record together with its
// product rows. Issues keep their NVDID and simply resolve to nothing until
// the record is imported again.
func DeleteVulnerabilityData(
	cveID string,
	dryRun bool,
	db *gorm.DB,
) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var record NVDRecord
		err := tx.Where(map[string]any{"ID": cveID}).First(&record).Error
		if err != nil {
			return fmt.Errorf("could not find record %s: %w", cveID, err)
		}

		var products []Product
		err = tx.Where(map[string]any{"ID": cveID}).Find(&products).Error
		if err != nil {
			return fmt.Errorf("could not find products: %w", err)
		}

		fmt.Printf("Found %d products\n", len(products))
		for _, product := range products {
			fmt.Printf("- %s %s, %s %s %s %s\n",
				product.Vendor, product.Product,
				product.OperatorStart, product.VersionStart,
				product.OperatorEnd, product.VersionEnd)
		}

		if dryRun {
			return nil
		}

		fmt.Printf("Deleting records for %s\n", cveID)
		if err := tx.Where("ID = ?", cveID).Delete(&Product{}).Error; err != nil {
			return fmt.Errorf("could not delete products: %w", err)
		}
		if err := tx.Where("ID = ?", cveID).Delete(&NVDRecord{}).Error; err != nil {
			return fmt.Errorf("could not delete record: %w", err)
		}
		return nil
	})
}
