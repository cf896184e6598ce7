package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order. String-valued so new
// states can be added without a migration.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus only ever moves pending -> paid or pending -> failed.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

var ErrNoItems = errors.New("order has no items")

type OrderItem struct {
	ProductID      string          `json:"product"`
	Quantity       int64           `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Size           string          `json:"size,omitempty"`
	Color          string          `json:"color,omitempty"`
	PaidWithPoints bool            `json:"paidWithPoints"`
}

// ShippingAddress is a snapshot taken at order time. Later edits to the
// buyer's profile never touch past orders.
type ShippingAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PointsUsed      int64           `json:"pointsUsed"`
	PointsEarned    int64           `json:"pointsEarned"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	SessionID       string          `json:"sessionId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	return nil
}

// Quantity returns the total number of units across all line items.
func (o *Order) Quantity() int64 {
	var n int64
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
