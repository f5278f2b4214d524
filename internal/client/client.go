// Package client talks to the FarmVerse backend REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmverse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client is a small REST client for the backend. The zero value is not usable;
// create one with New.
type Client struct {
	baseURL string
	token   string
}

// New creates a client for the backend at baseURL, e.g. "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/")}
}

// WithToken returns a copy of c that sends token as a Bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) agent(ctx context.Context, method, path string) (*fiber.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url := c.baseURL + path
	var a *fiber.Agent
	switch method {
	case fiber.MethodGet:
		a = fiber.Get(url)
	case fiber.MethodPost:
		a = fiber.Post(url)
	case fiber.MethodPatch:
		a = fiber.Patch(url)
	case fiber.MethodDelete:
		a = fiber.Delete(url)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if deadline, ok := ctx.Deadline(); ok {
		a.Timeout(time.Until(deadline))
	}
	return a, nil
}

// do sends the request and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	a, err := c.agent(ctx, method, path)
	if err != nil {
		return err
	}
	if body != nil {
		a.JSON(body)
	}

	code, resp, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		apiErr := &APIError{Status: code}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(resp, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// ListProducts fetches the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, fiber.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SeedCatalog replaces the backend catalog with the demo products.
func (c *Client) SeedCatalog(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, fiber.MethodPost, "/api/products/seed", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct publishes a farmer listing. Requires a farmer token.
func (c *Client) CreateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	product.ID = ""
	product.LocalID = ""
	var created models.Product
	if err := c.do(ctx, fiber.MethodPost, "/api/products", product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateOrder submits a checkout.
func (c *Client) CreateOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	var created models.Order
	if err := c.do(ctx, fiber.MethodPost, "/api/orders", order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListOrders returns every order the backend has recorded, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, fiber.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name,omitempty"`
	Role     models.Role `json:"role"`
}

// Register creates an account with the backend's identity service.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	var resp struct {
		User models.Account `json:"user"`
	}
	if err := c.do(ctx, fiber.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	var resp struct {
		Token string         `json:"token"`
		User  models.Account `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, fiber.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", nil, err
	}
	return resp.Token, &resp.User, nil
}
