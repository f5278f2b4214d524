package store

import "farmverse/internal/models"

// StorageKey is the versioned key the persisted subset lives under.
const StorageKey = "farmverse-store-v3"

// State is an immutable snapshot of the client. Mutating a returned State
// has no effect on the store.
type State struct {
	Products        []models.Product
	Cart            []models.Product
	User            *models.User
	IsAuthenticated bool
	Orders          []models.PlacedOrder
	CartOpen        bool
}

// persisted is the allow-listed subset written to durable storage. UI flags
// such as CartOpen are left out.
type persisted struct {
	Cart            []models.Product     `json:"cart"`
	User            *models.User         `json:"user"`
	IsAuthenticated bool                 `json:"isAuthenticated"`
	Products        []models.Product     `json:"products"`
	Orders          []models.PlacedOrder `json:"orders"`
}

func (s State) clone() State {
	out := State{
		Products:        append([]models.Product(nil), s.Products...),
		Cart:            append([]models.Product(nil), s.Cart...),
		IsAuthenticated: s.IsAuthenticated,
		CartOpen:        s.CartOpen,
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Orders != nil {
		out.Orders = make([]models.PlacedOrder, len(s.Orders))
		for i, o := range s.Orders {
			o.Items = append([]models.LineItem(nil), o.Items...)
			out.Orders[i] = o
		}
	}
	return out
}

func (s State) persisted() persisted {
	return persisted{
		Cart:            s.Cart,
		User:            s.User,
		IsAuthenticated: s.IsAuthenticated,
		Products:        s.Products,
		Orders:          s.Orders,
	}
}
