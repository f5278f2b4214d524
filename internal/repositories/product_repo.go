package repositories

import (
	"context"

	"farmverse/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// ReplaceAll deletes every product and inserts the given ones, returning them with IDs assigned.
	ReplaceAll(ctx context.Context, products []models.Product) ([]models.Product, error)
}
