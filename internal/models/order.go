package models

import "time"

// OrderStatus is a step in the fixed order progression.
type OrderStatus string

const (
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
)

var statusProgression = []OrderStatus{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}

// DefaultPaymentMethod is used when checkout does not name one.
const DefaultPaymentMethod = "Cash on Delivery"

func (s OrderStatus) rank() int {
	for i, st := range statusProgression {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is part of the progression.
func (s OrderStatus) Valid() bool { return s.rank() >= 0 }

// Next returns the status following s, if any.
func (s OrderStatus) Next() (OrderStatus, bool) {
	r := s.rank()
	if r < 0 || r == len(statusProgression)-1 {
		return "", false
	}
	return statusProgression[r+1], true
}

// CanAdvanceTo reports whether moving from s to target goes strictly forward.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) bool {
	from, to := s.rank(), target.rank()
	return from >= 0 && to > from
}

// CustomerInfo is the delivery contact captured at checkout.
type CustomerInfo struct {
	Name    string `json:"name" gorm:"type:varchar(120)" bson:"name" validate:"required"`
	Phone   string `json:"phone" gorm:"type:varchar(30)" bson:"phone" validate:"required"`
	Address string `json:"address" gorm:"type:varchar(255)" bson:"address" validate:"required"`
	City    string `json:"city" gorm:"type:varchar(80)" bson:"city" validate:"required"`
	PinCode string `json:"pinCode" gorm:"type:varchar(12)" bson:"pinCode" validate:"required"`
}

// OrderItem is a line item of a backend order. Product optionally references
// the persisted product the line was bought from.
type OrderItem struct {
	Name    string  `json:"name" bson:"name" validate:"required"`
	Price   float64 `json:"price" bson:"price" validate:"gte=0"`
	Product string  `json:"product,omitempty" bson:"product,omitempty"`
}

// Order is the backend's record of a placed purchase.
type Order struct {
	ID            string       `json:"_id" gorm:"primaryKey;type:varchar(64)" bson:"_id"`
	CustomerInfo  CustomerInfo `json:"customerInfo" gorm:"embedded;embeddedPrefix:customer_" bson:"customerInfo"`
	OrderItems    []OrderItem  `json:"orderItems" gorm:"serializer:json;type:text" bson:"orderItems" validate:"dive"`
	TotalPrice    float64      `json:"totalPrice" bson:"totalPrice"`
	PaymentMethod string       `json:"paymentMethod" gorm:"type:varchar(60)" bson:"paymentMethod" validate:"required"`
	IsDelivered   bool         `json:"isDelivered" bson:"isDelivered"`
	Status        OrderStatus  `json:"status" gorm:"type:varchar(20)" bson:"status"`
	CreatedAt     time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// LineItem is a snapshot of a product inside a client order record.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
}

// PlacedOrder is the client's local history record of an order.
type PlacedOrder struct {
	ID            string      `json:"id"`
	Items         []LineItem  `json:"items"`
	Total         float64     `json:"total"`
	Status        OrderStatus `json:"status"`
	Date          time.Time   `json:"date"`
	CustomerName  string      `json:"customerName"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	PaymentMethod string      `json:"paymentMethod"`
}
