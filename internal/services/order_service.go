package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmverse/internal/models"
	"farmverse/internal/repositories"
	"farmverse/pkg/logger"
)

var (
	// ErrNoOrderItems rejects orders without line items.
	ErrNoOrderItems = errors.New("no order items")
	// ErrInvalidStatus rejects statuses outside the order progression.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrStatusRegression rejects status changes that do not move forward.
	ErrStatusRegression = errors.New("order status can only move forward")
)

// EventPublisher delivers order events to a message broker.
type EventPublisher interface {
	Publish(body []byte) error
}

// OrderCreatedEvent is published after an order has been stored.
type OrderCreatedEvent struct {
	Event     string             `json:"event"`
	OrderID   string             `json:"orderId"`
	Status    models.OrderStatus `json:"status"`
	Total     float64            `json:"total"`
	Items     int                `json:"items"`
	City      string             `json:"city"`
	CreatedAt time.Time          `json:"createdAt"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	publisher EventPublisher // optional
	log       *logger.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, publisher EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		publisher: publisher,
		log:       log,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orderRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// CreateOrder stores a new order. The total is recomputed from the line items
// so that it always equals their sum; new orders start as confirmed.
func (s *OrderService) CreateOrder(ctx context.Context, req models.Order) (*models.Order, error) {
	if len(req.OrderItems) == 0 {
		return nil, ErrNoOrderItems
	}

	prices := make([]float64, len(req.OrderItems))
	for i, item := range req.OrderItems {
		prices[i] = item.Price
	}
	total := models.SumPrices(prices...)
	if req.TotalPrice != 0 && req.TotalPrice != total {
		s.log.Warn().Float64("submitted", req.TotalPrice).Float64("computed", total).Msg("order total mismatch, using computed total")
	}

	order := &models.Order{
		CustomerInfo:  req.CustomerInfo,
		OrderItems:    req.OrderItems,
		TotalPrice:    total,
		PaymentMethod: req.PaymentMethod,
		Status:        models.StatusConfirmed,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.DefaultPaymentMethod
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	s.publishCreated(order)
	return order, nil
}

func (s *OrderService) publishCreated(order *models.Order) {
	if s.publisher == nil {
		s.log.Debug().Str("order_id", order.ID).Msg("no event publisher configured, skipping order.created")
		return
	}
	body, err := json.Marshal(OrderCreatedEvent{
		Event:     "order.created",
		OrderID:   order.ID,
		Status:    order.Status,
		Total:     order.TotalPrice,
		Items:     len(order.OrderItems),
		City:      order.CustomerInfo.City,
		CreatedAt: order.CreatedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to marshal order.created event")
		return
	}
	if err := s.publisher.Publish(body); err != nil {
		s.log.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish order.created event")
		return
	}
	s.log.Debug().Str("order_id", order.ID).Msg("published order.created event")
}

// UpdateOrderStatus advances an order along confirmed → processing → shipped → delivered.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	current := order.Status
	if current == "" {
		current = models.StatusConfirmed
	}
	if !current.CanAdvanceTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current, status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	return nil
}
