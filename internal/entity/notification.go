package domain

import "time"

type NotificationType string

const (
	NotifyOrderConfirmed NotificationType = "order_confirmed"
	NotifyPointsEarned   NotificationType = "points_earned"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	OrderID   string           `json:"orderId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
