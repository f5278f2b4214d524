package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmverse/internal/models"
	"farmverse/internal/services"
	"farmverse/pkg/config"
	"farmverse/pkg/logger"
)

func testConfig(driver, dsn string) *config.Config {
	cfg := config.FromViper(config.Defaults())
	cfg.App.Env = "test"
	cfg.DB.Driver = driver
	cfg.DB.DSN = dsn
	cfg.JWT.Secret = "test_jwt_secret"
	return cfg
}

func newTestApp(t *testing.T, driver, dsn string) *App {
	t.Helper()
	app, err := NewApp(context.Background(), testConfig(driver, dsn), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, "memory", "")

	resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["db"])
	assert.Equal(t, false, body["rabbitMQ"])
}

func TestNewApp_SeedAndOrderFlow(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			app := newTestApp(t, driver, "file:"+uuid.NewString()+"?mode=memory&cache=shared")

			resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodPost, "/api/products/seed", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)

			resp, err = app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil))
			require.NoError(t, err)
			var products []models.Product
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
			require.Len(t, products, 6)

			order := `{"customerInfo":{"name":"Asha","phone":"98","address":"12 Mandi Road","city":"Nashik","pinCode":"422001"},` +
				`"orderItems":[{"name":"` + products[0].Name + `","price":40,"product":"` + products[0].ID + `"}],"totalPrice":40}`
			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(order))
			req.Header.Set("Content-Type", "application/json")
			resp, err = app.Fiber.Test(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		})
	}
}

func TestNewApp_UnknownDriver(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("cassandra", ""), logger.Nop())
	assert.Error(t, err)
}

func TestLogOrderEvent(t *testing.T) {
	handle := logOrderEvent(logger.Nop())

	body, err := json.Marshal(services.OrderCreatedEvent{Event: "order.created", OrderID: "o1", Total: 200, Items: 3})
	require.NoError(t, err)
	assert.NoError(t, handle(body))
	assert.Error(t, handle([]byte("not json")))
}
