package store

import (
	"fmt"

	"github.com/rdecicco/cvecheckreport/cvecheck"
)

func (s *Store) CreateProduct(product *cvecheck.Product) error {
	if product.VulnerabilityID == "" {
		return ErrEmptyVulnerabilityID
	}
	if err := s.db.Create(product).Error; err != nil {
		return fmt.Errorf("could not create product %s/%s: %w", product.Vendor, product.Product, err)
	}
	return nil
}

// ProductExists checks for a row matching the full tuple. Products carry no
// surrogate key; dedup on import works by natural-key equality.
func (s *Store) ProductExists(product *cvecheck.Product) (bool, error) {
	var count int64
	err := s.db.Model(&cvecheck.Product{}).
		Where(map[string]any{
			"ID":             product.VulnerabilityID,
			"VENDOR":         product.Vendor,
			"PRODUCT":        product.Product,
			"VERSION_START":  product.VersionStart,
			"OPERATOR_START": product.OperatorStart,
			"VERSION_END":    product.VersionEnd,
			"OPERATOR_END":   product.OperatorEnd,
		}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("could not look up product %s/%s: %w", product.Vendor, product.Product, err)
	}
	return count > 0, nil
}

func (s *Store) GetProductsOfVulnerability(id string) ([]cvecheck.Product, error) {
	var products []cvecheck.Product
	err := s.db.Where(map[string]any{"ID": id}).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("could not read products of %s: %w", id, err)
	}
	return products, nil
}

func (s *Store) DeleteProductsOfVulnerability(id string) error {
	if id == "" {
		return ErrEmptyVulnerabilityID
	}
	err := s.db.Where(map[string]any{"ID": id}).Delete(&cvecheck.Product{}).Error
	if err != nil {
		return fmt.Errorf("could not delete products of %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetAllProducts() ([]cvecheck.Product, error) {
	var products []cvecheck.Product
	if err := s.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("could not read products: %w", err)
	}
	return products, nil
}

// GetAllProductNames lists the distinct product names that have reference
// data, for the product filter of the NVD data view.
func (s *Store) GetAllProductNames() ([]string, error) {
	var names []string
	err := s.db.Model(&cvecheck.Product{}).
		Distinct("PRODUCTS.PRODUCT").
		Joins("JOIN NVD ON NVD.ID = PRODUCTS.ID").
		Order("PRODUCTS.PRODUCT").
		Pluck("PRODUCTS.PRODUCT", &names).Error
	if err != nil {
		return nil, fmt.Errorf("could not list product names: %w", err)
	}
	return names, nil
}
