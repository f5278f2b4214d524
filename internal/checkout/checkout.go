// Package checkout turns the cart into a backend order and a local order
// history entry.
package checkout

import (
	"context"
	"errors"
	"strings"

	"farmverse/internal/models"
	"farmverse/internal/store"
	"farmverse/pkg/logger"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrEmptyCart is returned without contacting the backend.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmissionFailed is returned for any backend failure. The cart is kept.
	ErrSubmissionFailed = errors.New("failed to place order, please try again")
)

// SubmitError carries the cause of a failed submission. Its message is always
// the generic ErrSubmissionFailed text.
type SubmitError struct {
	Cause error
}

func (e *SubmitError) Error() string   { return ErrSubmissionFailed.Error() }
func (e *SubmitError) Unwrap() []error { return []error{ErrSubmissionFailed, e.Cause} }

// ShippingForm is the delivery information the customer enters.
type ShippingForm struct {
	Name          string `validate:"required"`
	Phone         string `validate:"required"`
	Address       string `validate:"required"`
	City          string `validate:"required"`
	PinCode       string `validate:"required"`
	PaymentMethod string
}

// OrderAPI creates orders on the backend.
type OrderAPI interface {
	CreateOrder(ctx context.Context, order models.Order) (*models.Order, error)
}

// Service submits the store's cart.
type Service struct {
	store    *store.Store
	api      OrderAPI
	validate *validator.Validate
	log      *logger.Logger
}

// NewService creates a checkout Service.
func NewService(st *store.Store, api OrderAPI, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: st, api: api, validate: validator.New(), log: log}
}

// Submit sends the cart as an order. On success the cart is cleared and the
// order is added to the local history; on failure nothing changes. There is
// no retry.
func (s *Service) Submit(ctx context.Context, form ShippingForm) (*models.Order, error) {
	form = trimForm(form)
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}

	cart := s.store.Snapshot().Cart
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	paymentMethod := form.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}
	items := make([]models.OrderItem, len(cart))
	lines := make([]models.LineItem, len(cart))
	prices := make([]float64, len(cart))
	for i, p := range cart {
		items[i] = models.OrderItem{Name: p.Name, Price: p.Price}
		if ref := p.Ref(); ref.IsPersisted() {
			items[i].Product = ref.Key()
		}
		lines[i] = models.LineItem{Name: p.Name, Price: p.Price, Image: p.Image}
		prices[i] = p.Price
	}

	created, err := s.api.CreateOrder(ctx, models.Order{
		CustomerInfo: models.CustomerInfo{
			Name:    form.Name,
			Phone:   form.Phone,
			Address: form.Address,
			City:    form.City,
			PinCode: form.PinCode,
		},
		OrderItems:    items,
		TotalPrice:    models.SumPrices(prices...),
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		s.log.Error().Err(err).Int("items", len(items)).Msg("order submission failed")
		return nil, &SubmitError{Cause: err}
	}

	s.store.ClearCart()
	placed, _ := s.store.PlaceOrder(store.OrderInput{
		Items:         lines,
		CustomerName:  form.Name,
		Address:       form.Address,
		City:          form.City,
		PaymentMethod: paymentMethod,
	})
	s.log.Info().Str("order_id", created.ID).Str("local_id", placed.ID).Float64("total", placed.Total).Msg("order placed")
	return created, nil
}

func trimForm(f ShippingForm) ShippingForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.PinCode = strings.TrimSpace(f.PinCode)
	f.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	return f
}
