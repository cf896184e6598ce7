package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID   string          `json:"product"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // unit price at time of adding
	PointsPrice int64           `json:"pointsPrice,omitempty"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	WithPoints  bool            `json:"withPoints"`
}

// Cart is the per-user staging area for a checkout. One cart per user,
// upserted on first add, cleared by the settlement workflow.
type Cart struct {
	UserID    string     `json:"user"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CashTotal sums the cash-paid lines.
func (c *Cart) CashTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		if it.WithPoints {
			continue
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}

// PointsTotal sums the points-paid lines.
func (c *Cart) PointsTotal() int64 {
	var total int64
	for _, it := range c.Items {
		if it.WithPoints {
			total += it.PointsPrice * it.Quantity
		}
	}
	return total
}
