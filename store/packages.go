package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

func (s *Store) CreatePackage(pkg *cvecheck.Package) (int64, error) {
	if err := s.db.Create(pkg).Error; err != nil {
		return 0, fmt.Errorf("could not create package %s: %w", pkg.Name, err)
	}
	return pkg.ID, nil
}

// GetPackage reads a package and hydrates its parent report.
func (s *Store) GetPackage(id int64) (*cvecheck.Package, error) {
	var pkg cvecheck.Package
	err := s.db.Where(map[string]any{"ID": id}).First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read package %d: %w", id, err)
	}

	report, err := s.GetReport(pkg.CVEReportID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	pkg.Report = report
	return &pkg, nil
}

func (s *Store) UpdatePackage(pkg *cvecheck.Package) error {
	if err := s.db.Save(pkg).Error; err != nil {
		return fmt.Errorf("could not update package %d: %w", pkg.ID, err)
	}
	return nil
}

func (s *Store) DeletePackage(id int64) error {
	err := s.db.Where(map[string]any{"ID": id}).Delete(&cvecheck.Package{}).Error
	if err != nil {
		return fmt.Errorf("could not delete package %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetPackagesOfReport(reportID int64) ([]cvecheck.Package, error) {
	var packages []cvecheck.Package
	err := s.db.Where(map[string]any{"CVEReportID": reportID}).Find(&packages).Error
	if err != nil {
		return nil, fmt.Errorf("could not read packages of report %d: %w", reportID, err)
	}
	return packages, nil
}

func (s *Store) CreatePackageProduct(product *cvecheck.PackageProduct) (int64, error) {
	if err := s.db.Create(product).Error; err != nil {
		return 0, fmt.Errorf("could not create package product %s: %w", product.Product, err)
	}
	return product.ID, nil
}

func (s *Store) GetPackageProduct(id int64) (*cvecheck.PackageProduct, error) {
	var product cvecheck.PackageProduct
	err := s.db.Where(map[string]any{"ID": id}).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read package product %d: %w", id, err)
	}
	return &product, nil
}

func (s *Store) UpdatePackageProduct(product *cvecheck.PackageProduct) error {
	if err := s.db.Save(product).Error; err != nil {
		return fmt.Errorf("could not update package product %d: %w", product.ID, err)
	}
	return nil
}

func (s *Store) DeletePackageProduct(id int64) error {
	err := s.db.Where(map[string]any{"ID": id}).Delete(&cvecheck.PackageProduct{}).Error
	if err != nil {
		return fmt.Errorf("could not delete package product %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetPackageProductsOfPackage(packageID int64) ([]cvecheck.PackageProduct, error) {
	var products []cvecheck.PackageProduct
	err := s.db.Where(map[string]any{"PackageID": packageID}).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("could not read products of package %d: %w", packageID, err)
	}
	return products, nil
}
