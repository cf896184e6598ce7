package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a loyalty ledger entry.
type Direction string

const (
	DirectionEarned Direction = "earned"
	DirectionSpent  Direction = "spent"
)

// LoyaltyEntry is one immutable row of the points history. The balance is
// the sum of earned minus spent; entries are never updated or deleted.
type LoyaltyEntry struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user"`
	Points      int64     `json:"points"`
	Direction   Direction `json:"type"`
	OrderID     string    `json:"order,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

var earnRate = decimal.RequireFromString("0.10")

// EarnedPoints is the reward for a cash purchase: 10% of the total,
// rounded down to whole points.
func EarnedPoints(total decimal.Decimal) int64 {
	return total.Mul(earnRate).Floor().IntPart()
}

// PointsValue converts points to their cash value at 1 point = $0.01.
func PointsValue(points int64) decimal.Decimal {
	return decimal.New(points, -2)
}
