package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/catalog"
)

// seedFile is the layout of a product seed file:
//
//	products:
//	  - id: "1"
//	    sku: "PRD-001"
//	    name: "Wireless Headphones"
//	    ...
type seedFile struct {
	Products []catalog.Product `yaml:"products"`
}

// LoadSeed reads and validates the products of a YAML seed file.
func LoadSeed(path string) ([]catalog.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	ids := make(map[string]bool, len(seed.Products))
	for i, p := range seed.Products {
		if p.SyncStatus == "" {
			seed.Products[i].SyncStatus = catalog.StatusPending
			p.SyncStatus = catalog.StatusPending
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("seed %s: %w", path, err)
		}
		if ids[p.ID] {
			return nil, fmt.Errorf("seed %s: duplicate product id %q", path, p.ID)
		}
		ids[p.ID] = true
	}
	return seed.Products, nil
}

// Seed loads a seed file into the repository. It returns the number of
// products written.
func Seed(repo ProductRepository, path string) (int, error) {
	products, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	if err := repo.UpsertProducts(products); err != nil {
		return 0, fmt.Errorf("seed %s: %w", path, err)
	}
	return len(products), nil
}
