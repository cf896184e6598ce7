package usecase

// Published to RabbitMQ when an order is confirmed; the notification
// consumer persists it and hands it to the delivery gateway.
type OrderConfirmedMsg struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId"`
}

// Sent by the fulfillment system on Kafka as orders move through the
// warehouse.
type FulfillmentStatusMsg struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"` // e.g. "SHIPPED", "DELIVERED", "CANCELLED"
}
