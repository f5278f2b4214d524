package services

import (
	"context"
	"fmt"
	"strings"

	"farmverse/internal/catalog"
	"farmverse/internal/models"
	"farmverse/internal/repositories"
	"farmverse/pkg/logger"
)

// ProductService handles business logic related to the product catalog.
type ProductService struct {
	repo repositories.ProductRepository
	log  *logger.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, log *logger.Logger) *ProductService {
	return &ProductService{
		repo: repo,
		log:  log,
	}
}

// GetAllProducts retrieves the whole catalog.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// SeedCatalog clears the catalog and repopulates it with the demo products.
func (s *ProductService) SeedCatalog(ctx context.Context) ([]models.Product, error) {
	demo, err := catalog.Demo()
	if err != nil {
		return nil, err
	}
	created, err := s.repo.ReplaceAll(ctx, demo)
	if err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	s.log.Info().Int("count", len(created)).Msg("demo catalog seeded")
	return created, nil
}

// CreateListing persists a listing submitted by a farmer. The backend always
// assigns the durable ID; client-side identifiers are discarded. When the
// listing has no farmer label the seller's display name or identity is used.
func (s *ProductService) CreateListing(ctx context.Context, seller models.User, product *models.Product) error {
	product.ID = ""
	product.LocalID = ""
	if strings.TrimSpace(product.Farmer) == "" {
		product.Farmer = seller.Name
		if product.Farmer == "" {
			product.Farmer = seller.Identity
		}
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	s.log.Info().Str("product_id", product.ID).Str("farmer", product.Farmer).Msg("listing created")
	return nil
}
