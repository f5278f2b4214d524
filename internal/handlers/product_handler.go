package handlers

import (
	"errors"
	"strings"

	"farmverse/internal/middleware"
	"farmverse/internal/models"
	"farmverse/internal/repositories"
	"farmverse/internal/services"
	"farmverse/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	log      *logger.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		log:      log.Component("product_handler"),
	}
}

// RegisterRoutes registers the product routes. Listing creation requires a
// farmer session, which is why the auth middleware is passed in.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/seed", h.HandleSeedProducts)
	productRoutes.Post("/", auth, middleware.RequireRole(models.RoleFarmer), h.HandleCreateProduct)
	productRoutes.Get("/:id", h.HandleGetProductByID)
}

// HandleGetProducts returns the full catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		h.log.Error().Err(err).Msg("error getting products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server Error",
		})
	}
	return c.JSON(products)
}

// HandleGetProductByID returns one product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id := c.Params("id")
	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Product not found",
			})
		}
		h.log.Error().Err(err).Str("product_id", id).Msg("error getting product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server Error",
		})
	}
	return c.JSON(product)
}

// HandleSeedProducts wipes the catalog and inserts the demo products.
func (h *ProductHandler) HandleSeedProducts(c *fiber.Ctx) error {
	created, err := h.service.SeedCatalog(c.UserContext())
	if err != nil {
		h.log.Error().Err(err).Msg("error seeding products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server Error during seeding",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleCreateProduct persists a farmer's listing.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	seller, _ := middleware.CurrentUser(c)

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if strings.TrimSpace(product.Farmer) == "" {
		product.Farmer = seller.Name
		if product.Farmer == "" {
			product.Farmer = seller.Identity
		}
	}
	if err := h.validate.Struct(product); err != nil {
		return validationFailed(c, err)
	}

	if err := h.service.CreateListing(c.UserContext(), seller, &product); err != nil {
		h.log.Error().Err(err).Str("farmer", product.Farmer).Msg("error creating listing")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server Error during listing creation",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}
