package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend catalog categories. Client-side listings may also use freeform
// categories such as "vegetable", "fruit", "grain" or "dairy".
const (
	CategoryProduce = "produce"
	CategorySupply  = "supply"
)

// DefaultStock is the availability label given to listings that do not set one.
const DefaultStock = "In Stock"

// Reserved identifier prefixes. IDs carrying one of them were never assigned
// by the backend and therefore can never collide with a persisted product.
const (
	LocalIDPrefix   = "local-" // farmer listings created on the client
	StarterIDPrefix = "mock-"  // bundled starter catalog
)

// Product represents a sellable item.
type Product struct {
	ID          string    `json:"_id,omitempty" gorm:"primaryKey;type:varchar(64)" bson:"_id"`
	LocalID     string    `json:"localId,omitempty" gorm:"-" bson:"-"`
	Name        string    `json:"name" gorm:"type:varchar(120);not null" bson:"name" validate:"required,min=2,max=120"`
	Price       float64   `json:"price" gorm:"not null" bson:"price" validate:"required,gt=0"`
	Farmer      string    `json:"farmer" gorm:"type:varchar(120);not null" bson:"farmer" validate:"required,max=120"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty" validate:"omitempty,max=500"`
	Category    string    `json:"category,omitempty" gorm:"type:varchar(40);index" bson:"category,omitempty" validate:"omitempty,max=40"`
	SubCategory string    `json:"subCategory,omitempty" gorm:"type:varchar(80)" bson:"subCategory,omitempty" validate:"omitempty,max=80"`
	Stock       string    `json:"stock,omitempty" gorm:"type:varchar(40)" bson:"stock,omitempty" validate:"omitempty,max=40"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Ref converts the product's identity fields into a ProductRef.
// A product is local when it has no durable ID or its ID carries a reserved prefix.
func (p Product) Ref() ProductRef {
	switch {
	case p.ID != "" && !IsReservedID(p.ID):
		return PersistedRef(p.ID)
	case p.ID != "":
		return LocalRef(p.ID)
	default:
		return LocalRef(p.LocalID)
	}
}

// Key is shorthand for p.Ref().Key().
func (p Product) Key() string {
	return p.Ref().Key()
}

// IsReservedID reports whether id uses one of the client-only prefixes.
func IsReservedID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix) || strings.HasPrefix(id, StarterIDPrefix)
}

// NewLocalID returns a fresh client-only identifier.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

type refKind uint8

const (
	refPersisted refKind = iota + 1
	refLocal
)

// ProductRef is the identity of a product: either Persisted (backend-assigned)
// or Local (client-only, not yet acknowledged by the backend).
type ProductRef struct {
	kind refKind
	key  string
}

// PersistedRef identifies a product stored by the backend.
func PersistedRef(id string) ProductRef {
	return ProductRef{kind: refPersisted, key: id}
}

// LocalRef identifies a product that only exists on the client.
func LocalRef(tempID string) ProductRef {
	return ProductRef{kind: refLocal, key: tempID}
}

func (r ProductRef) IsPersisted() bool { return r.kind == refPersisted }
func (r ProductRef) IsLocal() bool     { return r.kind == refLocal }

// Key is the identity string used for matching cart entries and catalog entries.
// It is empty for a local product that was never given an identifier.
func (r ProductRef) Key() string { return r.key }

func (r ProductRef) String() string {
	switch r.kind {
	case refPersisted:
		return "persisted:" + r.key
	case refLocal:
		return "local:" + r.key
	default:
		return "none"
	}
}
