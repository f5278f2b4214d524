// Package backendtest runs the real FarmVerse backend handlers on a loopback
// listener for client-side tests.
package backendtest

import (
	"context"
	"net"
	"testing"
	"time"

	"farmverse/internal/handlers"
	"farmverse/internal/middleware"
	"farmverse/internal/models"
	"farmverse/internal/repositories"
	"farmverse/internal/services"
	"farmverse/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Secret signs the session tokens issued by the test backend.
const Secret = "backendtest-secret"

// Server is a running backend.
type Server struct {
	URL      string
	App      *fiber.App
	Auth     *services.AuthService
	Products *repositories.MemoryProductRepository
	Orders   *repositories.MemoryOrderRepository
	Users    *repositories.MemoryUserRepository
}

// Start serves the backend API over memory repositories until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()

	log := logger.Nop()
	s := &Server{
		Products: repositories.NewMemoryProductRepository(),
		Orders:   repositories.NewMemoryOrderRepository(),
		Users:    repositories.NewMemoryUserRepository(),
	}
	s.Auth = services.NewAuthService(s.Users, Secret, time.Hour)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api := app.Group("/api")
	handlers.NewProductHandler(services.NewProductService(s.Products, log), log).RegisterRoutes(api, middleware.AuthRequired(s.Auth, log))
	handlers.NewOrderHandler(services.NewOrderService(s.Orders, nil, log), log).RegisterRoutes(api)
	handlers.NewAuthHandler(s.Auth, log).RegisterRoutes(api)
	s.App = app

	s.URL = Serve(t, app)
	return s
}

// Serve runs app on a loopback port until the test ends and returns its base URL.
func Serve(t testing.TB, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

// Token registers an account and returns a session token for it.
func (s *Server) Token(t testing.TB, email string, role models.Role, name string) string {
	t.Helper()
	account := &models.Account{Email: email, Role: role, Name: name}
	if err := s.Auth.RegisterUser(context.Background(), account, "password123"); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	token, _, err := s.Auth.LoginUser(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return token
}
