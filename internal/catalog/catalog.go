// Package catalog holds the bundled product catalogs: the demo catalog the
// backend seeds on request and the starter catalog the client shows offline.
package catalog

import (
	_ "embed"
	"fmt"

	"farmverse/internal/models"

	"gopkg.in/yaml.v3"
)

var (
	//go:embed demo.yaml
	demoYAML []byte
	//go:embed starter.yaml
	starterYAML []byte
)

type entry struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Price       float64 `yaml:"price"`
	Farmer      string  `yaml:"farmer"`
	Image       string  `yaml:"image"`
	Category    string  `yaml:"category"`
	SubCategory string  `yaml:"subCategory"`
	Stock       string  `yaml:"stock"`
}

type file struct {
	Products []entry `yaml:"products"`
}

// Demo returns the demo catalog. Entries carry no IDs; the repository assigns them.
func Demo() ([]models.Product, error) {
	return Parse(demoYAML)
}

// Starter returns the client's starter catalog.
func Starter() ([]models.Product, error) {
	return Parse(starterYAML)
}

// MustStarter is Starter for callers that treat a broken embedded file as a programming error.
func MustStarter() []models.Product {
	products, err := Starter()
	if err != nil {
		panic(err)
	}
	return products
}

// Parse decodes a catalog document.
func Parse(data []byte) ([]models.Product, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	products := make([]models.Product, 0, len(f.Products))
	for i, e := range f.Products {
		if e.Name == "" || e.Price <= 0 {
			return nil, fmt.Errorf("catalog entry %d: name and positive price are required", i)
		}
		products = append(products, models.Product{
			ID:          e.ID,
			Name:        e.Name,
			Price:       e.Price,
			Farmer:      e.Farmer,
			Image:       e.Image,
			Category:    e.Category,
			SubCategory: e.SubCategory,
			Stock:       e.Stock,
		})
	}
	return products, nil
}
