package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"farmverse/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// Products are returned in insertion order.
type MemoryProductRepository struct {
	products []models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{}
}

// GetAll returns all products.
func (r *MemoryProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, len(r.products))
	copy(productList, r.products)
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prepareProduct(product)
	for _, p := range r.products {
		if p.ID == product.ID {
			return fmt.Errorf("product with ID %s: %w", product.ID, ErrDuplicate)
		}
	}
	r.products = append(r.products, *product)
	return nil
}

// ReplaceAll swaps the whole catalog.
func (r *MemoryProductRepository) ReplaceAll(_ context.Context, products []models.Product) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]models.Product, len(products))
	for i := range products {
		p := products[i]
		prepareProduct(&p)
		created[i] = p
	}
	r.products = append([]models.Product(nil), created...)
	return created, nil
}

// prepareProduct assigns an ID, default stock label and timestamps before a write.
func prepareProduct(product *models.Product) {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.Stock == "" {
		product.Stock = models.DefaultStock
	}
	if product.Category == "" {
		product.Category = models.CategoryProduce
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
}
