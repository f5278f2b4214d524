// Package store holds the client's application state: cart, catalog, order
// history, the signed-in user and UI flags. It is the only component that
// mutates that state, and it mirrors an allow-listed subset to durable storage
// after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"farmverse/internal/catalog"
	"farmverse/internal/models"
	"farmverse/internal/persistence"
	"farmverse/pkg/logger"
)

// ErrUnknownProduct is returned by PublishLocalProduct when no local catalog
// entry has the given key.
var ErrUnknownProduct = errors.New("no local product with that key")

// CatalogSource reads the authoritative catalog.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// ListingPublisher persists a farmer listing on the backend.
type ListingPublisher interface {
	CreateProduct(ctx context.Context, product models.Product) (*models.Product, error)
}

// Options configures a Store. Every field is optional.
type Options struct {
	Storage   persistence.Storage
	Catalog   CatalogSource
	Publisher ListingPublisher
	Logger    *logger.Logger
	// Products seeds the catalog before hydration. Defaults to the bundled
	// starter catalog.
	Products []models.Product
	Now      func() time.Time
}

// OrderInput is what checkout knows about an order before the store records it.
type OrderInput struct {
	Items         []models.LineItem
	CustomerName  string
	Address       string
	City          string
	PaymentMethod string
}

// Store is safe for concurrent use. Mutations are applied in call order and
// each returns the snapshot it produced.
type Store struct {
	mu        sync.Mutex
	state     State
	storage   persistence.Storage
	catalog   CatalogSource
	publisher ListingPublisher
	log       *logger.Logger
	now       func() time.Time
	ids       orderIDs
}

// New creates a Store.
func New(opts Options) *Store {
	s := &Store{
		storage:   opts.Storage,
		catalog:   opts.Catalog,
		publisher: opts.Publisher,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	products := opts.Products
	if products == nil {
		products = catalog.MustStarter()
	}
	s.state.Products = append([]models.Product(nil), products...)
	return s
}

// Hydrate loads the persisted subset, if any. A missing record keeps the
// current state.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	raw, err := s.storage.Load(ctx, StorageKey)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load client state: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to decode client state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Cart = p.Cart
	s.state.User = p.User
	s.state.IsAuthenticated = p.IsAuthenticated && p.User != nil
	if p.Products != nil {
		s.state.Products = p.Products
	}
	s.state.Orders = p.Orders
	return nil
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// update applies fn under the lock, persists the result and returns a snapshot.
func (s *Store) update(fn func(st *State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.persistLocked()
	return s.state.clone()
}

// persistLocked writes the allow-listed subset. Failures are logged only.
func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	raw, err := json.Marshal(s.state.persisted())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode client state")
		return
	}
	if err := s.storage.Save(context.Background(), StorageKey, raw); err != nil {
		s.log.Warn().Err(err).Str("key", StorageKey).Msg("failed to persist client state")
	}
}

// AddToCart appends product to the cart.
func (s *Store) AddToCart(product models.Product) State {
	return s.update(func(st *State) {
		st.Cart = append(st.Cart, product)
	})
}

// RemoveFromCart removes every cart entry with the given identity.
func (s *Store) RemoveFromCart(key string) State {
	return s.update(func(st *State) {
		kept := st.Cart[:0:0]
		for _, p := range st.Cart {
			if p.Key() != key {
				kept = append(kept, p)
			}
		}
		st.Cart = kept
	})
}

// RemoveOneFromCart removes the first cart entry with the given identity.
func (s *Store) RemoveOneFromCart(key string) State {
	return s.update(func(st *State) {
		for i, p := range st.Cart {
			if p.Key() == key {
				cart := make([]models.Product, 0, len(st.Cart)-1)
				cart = append(cart, st.Cart[:i]...)
				st.Cart = append(cart, st.Cart[i+1:]...)
				return
			}
		}
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart() State {
	return s.update(func(st *State) {
		st.Cart = nil
	})
}

// ToggleCart flips the cart drawer visibility flag.
func (s *Store) ToggleCart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CartOpen = !s.state.CartOpen
	return s.state.clone()
}

// CartTotal sums the prices of the cart entries.
func (s *Store) CartTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prices := make([]float64, len(s.state.Cart))
	for i, p := range s.state.Cart {
		prices[i] = p.Price
	}
	return models.SumPrices(prices...)
}

// FetchProducts refreshes the catalog from the backend. Failures are logged
// and leave the catalog as it was.
func (s *Store) FetchProducts(ctx context.Context) State {
	if s.catalog == nil {
		return s.Snapshot()
	}
	remote, err := s.catalog.ListProducts(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to fetch products, using cached catalog")
		return s.Snapshot()
	}
	return s.update(func(st *State) {
		st.Products = Reconcile(st.Products, remote)
	})
}

// Login sets the signed-in user, replacing any previous one.
func (s *Store) Login(identity string, role models.Role) State {
	return s.LoginUser(models.User{Identity: identity, Role: role})
}

// LoginUser is Login with a display name.
func (s *Store) LoginUser(user models.User) State {
	return s.update(func(st *State) {
		u := user
		st.User = &u
		st.IsAuthenticated = true
	})
}

// Logout clears the signed-in user. Cart and order history are kept.
func (s *Store) Logout() State {
	return s.update(func(st *State) {
		st.User = nil
		st.IsAuthenticated = false
	})
}

// AddProductLocally prepends a listing to the catalog without contacting the
// backend. A product without any identity gets a fresh local ID.
func (s *Store) AddProductLocally(product models.Product) State {
	if product.ID == "" && product.LocalID == "" {
		product.LocalID = models.NewLocalID()
	}
	if product.Stock == "" {
		product.Stock = models.DefaultStock
	}
	return s.update(func(st *State) {
		st.Products = append([]models.Product{product}, st.Products...)
	})
}

// PlaceOrder records a confirmed order at the front of the order history.
func (s *Store) PlaceOrder(in OrderInput) (models.PlacedOrder, State) {
	now := s.now()
	prices := make([]float64, len(in.Items))
	for i, it := range in.Items {
		prices[i] = it.Price
	}
	order := models.PlacedOrder{
		ID:            s.ids.next(now),
		Items:         append([]models.LineItem(nil), in.Items...),
		Total:         models.SumPrices(prices...),
		Status:        models.StatusConfirmed,
		Date:          now,
		CustomerName:  in.CustomerName,
		Address:       in.Address,
		City:          in.City,
		PaymentMethod: in.PaymentMethod,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.DefaultPaymentMethod
	}

	st := s.update(func(st *State) {
		st.Orders = append([]models.PlacedOrder{order}, st.Orders...)
	})
	order.Items = append([]models.LineItem(nil), order.Items...)
	return order, st
}

// FarmerInventory lists the catalog entries of the signed-in farmer, matched
// by identity or display name against the farmer label.
func (s *Store) FarmerInventory() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.User
	if !s.state.IsAuthenticated || u == nil || u.Role != models.RoleFarmer {
		return nil
	}
	var out []models.Product
	for _, p := range s.state.Products {
		if p.Farmer == "" {
			continue
		}
		if strings.EqualFold(p.Farmer, u.Identity) || (u.Name != "" && strings.EqualFold(p.Farmer, u.Name)) {
			out = append(out, p)
		}
	}
	return out
}

// GeneralSupplies is the supply subcategory that also holds supplies without one.
const GeneralSupplies = "General Supplies"

// ProductsInCategory filters the catalog. An empty subCategory matches every
// product in category.
func (s *Store) ProductsInCategory(category, subCategory string) []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.state.Products {
		if !strings.EqualFold(p.Category, category) {
			continue
		}
		switch {
		case subCategory == "":
		case strings.EqualFold(p.SubCategory, subCategory):
		case p.SubCategory == "" && strings.EqualFold(subCategory, GeneralSupplies):
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}

// PublishLocalProduct sends a local listing to the backend and, on success,
// replaces it in the catalog and the cart with the persisted product.
func (s *Store) PublishLocalProduct(ctx context.Context, key string) (models.Product, error) {
	if s.publisher == nil {
		return models.Product{}, errors.New("no listing publisher configured")
	}

	s.mu.Lock()
	var local *models.Product
	for _, p := range s.state.Products {
		if p.Ref().IsLocal() && p.Key() == key && key != "" {
			local = &p
			break
		}
	}
	s.mu.Unlock()
	if local == nil {
		return models.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, key)
	}

	created, err := s.publisher.CreateProduct(ctx, *local)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to publish listing: %w", err)
	}
	if !created.Ref().IsPersisted() {
		return models.Product{}, errors.New("backend returned product without a durable id")
	}

	s.update(func(st *State) {
		st.Products = replaceByKey(st.Products, key, *created)
		st.Cart = replaceByKey(st.Cart, key, *created)
	})
	s.log.Info().Str("local_key", key).Str("product_id", created.ID).Msg("listing published")
	return *created, nil
}

func replaceByKey(products []models.Product, key string, with models.Product) []models.Product {
	out := make([]models.Product, len(products))
	for i, p := range products {
		if p.Ref().IsLocal() && p.Key() == key {
			p = with
		}
		out[i] = p
	}
	return out
}
