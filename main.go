package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"farmverse/internal/handlers"
	"farmverse/internal/middleware"
	"farmverse/internal/models"
	"farmverse/internal/repositories"
	"farmverse/internal/services"
	"farmverse/pkg/config"
	"farmverse/pkg/logger"
	"farmverse/pkg/rabbitmq"
)

// App bundles the HTTP server and the resources it owns.
type App struct {
	Fiber   *fiber.App
	Auth    *services.AuthService
	log     *logger.Logger
	closers []func() error
}

type stores struct {
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	users    repositories.UserRepository
}

// NewApp wires repositories, services and handlers according to cfg.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{log: log}

	st, err := a.openStores(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		a.closers = append(a.closers, mqClient.Close)
		publisher = mqClient
		if err := mqClient.Consume(logOrderEvent(log.Component("order_events"))); err != nil {
			log.Warn().Err(err).Msg("failed to start RabbitMQ consumer")
		}
		log.Info().Str("queue", mqClient.Queue()).Msg("publishing order events to RabbitMQ")
	}

	productService := services.NewProductService(st.products, log.Component("product_service"))
	orderService := services.NewOrderService(st.orders, publisher, log.Component("order_service"))
	a.Auth = services.NewAuthService(st.users, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)

	productHandler := handlers.NewProductHandler(productService, log)
	orderHandler := handlers.NewOrderHandler(orderService, log)
	authHandler := handlers.NewAuthHandler(a.Auth, log)

	app := fiber.New(fiber.Config{
		AppName:               "farmverse",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if cfg.App.Env != "test" {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: os.Stderr}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"db":       cfg.DB.Driver,
			"rabbitMQ": publisher != nil,
		})
	})

	api := app.Group("/api")
	productHandler.RegisterRoutes(api, middleware.AuthRequired(a.Auth, log))
	orderHandler.RegisterRoutes(api)
	authHandler.RegisterRoutes(api)

	a.Fiber = app
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.DBConfig) (stores, error) {
	switch cfg.Driver {
	case "", "memory":
		return stores{
			products: repositories.NewMemoryProductRepository(),
			orders:   repositories.NewMemoryOrderRepository(),
			users:    repositories.NewMemoryUserRepository(),
		}, nil
	case "sqlite", "postgres":
		var dialector gorm.Dialector
		if cfg.Driver == "sqlite" {
			dialector = sqlite.Open(cfg.DSN)
		} else {
			dialector = postgres.Open(cfg.DSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return stores{}, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
		}
		if err := db.AutoMigrate(&models.Product{}, &models.Order{}, &models.Account{}); err != nil {
			return stores{}, fmt.Errorf("failed to auto-migrate database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return stores{
			products: repositories.NewGORMProductRepository(db),
			orders:   repositories.NewGORMOrderRepository(db),
			users:    repositories.NewGORMUserRepository(db),
		}, nil
	case "mongo":
		client, db, err := repositories.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return stores{}, err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		return stores{
			products: repositories.NewMongoProductRepository(db),
			orders:   repositories.NewMongoOrderRepository(db),
			users:    repositories.NewMongoUserRepository(db),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
}

// Close releases the database and broker connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// logOrderEvent returns a consumer for order.created events. Malformed messages
// are rejected so they are not redelivered.
func logOrderEvent(log *logger.Logger) rabbitmq.Handler {
	return func(body []byte) error {
		var event services.OrderCreatedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			log.Warn().Err(err).Bytes("body", body).Msg("discarding malformed order event")
			return err
		}
		log.Info().
			Str("event", event.Event).
			Str("order_id", event.OrderID).
			Float64("total", event.Total).
			Int("items", event.Items).
			Str("city", event.City).
			Msg("order event received")
		return nil
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("error releasing resources")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.App.Port).Str("db", cfg.DB.Driver).Msg("starting server")
		errCh <- app.Fiber.Listen(cfg.App.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("error during fiber shutdown")
	}
	fmt.Fprintln(stdout, "server gracefully stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
