package checkout_test

import (
	"context"
	"errors"
	"testing"

	"farmverse/internal/backendtest"
	"farmverse/internal/checkout"
	"farmverse/internal/client"
	"farmverse/internal/models"
	"farmverse/internal/store"
	"farmverse/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var form = checkout.ShippingForm{Name: "Asha", Phone: "9800000000", Address: "12 Mandi Road", City: "Nashik", PinCode: "422001"}

type MockOrderAPI struct {
	mock.Mock
}

func (m *MockOrderAPI) CreateOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func TestSubmit_AgainstBackend(t *testing.T) {
	srv := backendtest.Start(t)
	ctx := context.Background()
	api := client.New(srv.URL)
	seeded, err := api.SeedCatalog(ctx)
	require.NoError(t, err)

	st := store.New(store.Options{Catalog: api, Products: []models.Product{}})
	st.FetchProducts(ctx)
	st.AddToCart(seeded[0])
	st.AddToCart(seeded[1])
	st.AddProductLocally(models.Product{Name: "Green Chillies", Price: 50, Farmer: "Ramesh"})
	st.AddToCart(st.Snapshot().Products[0])
	total := st.CartTotal()

	svc := checkout.NewService(st, api, logger.Nop())
	order, err := svc.Submit(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, total, order.TotalPrice)
	require.Len(t, order.OrderItems, 3)
	assert.Equal(t, seeded[0].ID, order.OrderItems[0].Product)
	assert.Empty(t, order.OrderItems[2].Product, "local listings carry no product reference")
	assert.Equal(t, models.DefaultPaymentMethod, order.PaymentMethod)

	snap := st.Snapshot()
	assert.Empty(t, snap.Cart)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, total, snap.Orders[0].Total)
	assert.Equal(t, "Asha", snap.Orders[0].CustomerName)
	assert.Equal(t, models.StatusConfirmed, snap.Orders[0].Status)

	stored, err := srv.Orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSubmit_EmptyCart(t *testing.T) {
	api := new(MockOrderAPI)
	svc := checkout.NewService(store.New(store.Options{Products: []models.Product{}}), api, logger.Nop())

	_, err := svc.Submit(context.Background(), form)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	api.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestSubmit_IncompleteForm(t *testing.T) {
	api := new(MockOrderAPI)
	st := store.New(store.Options{Products: []models.Product{}})
	st.AddToCart(models.Product{ID: "p1", Name: "Tomato", Price: 40})
	svc := checkout.NewService(st, api, logger.Nop())

	_, err := svc.Submit(context.Background(), checkout.ShippingForm{Name: "Asha", City: "  "})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	api.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestSubmit_FailureKeepsCart(t *testing.T) {
	api := new(MockOrderAPI)
	st := store.New(store.Options{Products: []models.Product{}})
	st.AddToCart(models.Product{ID: "p1", Name: "Tomato", Price: 40})
	st.AddToCart(models.Product{ID: "p2", Name: "Apple", Price: 120})
	svc := checkout.NewService(st, api, nil)

	cause := &client.APIError{Status: 500, Message: "Server Error during order creation"}
	api.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o models.Order) bool {
		return o.TotalPrice == 160 && len(o.OrderItems) == 2 && o.OrderItems[1].Product == "p2"
	})).Return(nil, cause).Once()

	_, err := svc.Submit(context.Background(), form)
	require.Error(t, err)
	assert.ErrorIs(t, err, checkout.ErrSubmissionFailed)
	assert.Equal(t, checkout.ErrSubmissionFailed.Error(), err.Error())
	assert.True(t, errors.Is(err, cause))

	snap := st.Snapshot()
	assert.Len(t, snap.Cart, 2)
	assert.Empty(t, snap.Orders)
	api.AssertExpectations(t)
}
