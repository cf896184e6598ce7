package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder        = errors.New("no items in order")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicate         = errors.New("duplicate idempotency key")
)

// InsufficientPointsError reports both sides of a failed points check so the
// caller can show the shortfall.
type InsufficientPointsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("Insufficient points. Required: %d, Available: %d", e.Required, e.Available)
}

// GatewaySessionError wraps a hosted-session creation failure. The order row
// exists but is marked payment-failed, never left as silently pending.
type GatewaySessionError struct {
	OrderID string
	Err     error
}

func (e *GatewaySessionError) Error() string {
	return fmt.Sprintf("create payment session for order %s: %v", e.OrderID, e.Err)
}

func (e *GatewaySessionError) Unwrap() error { return e.Err }
