package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// EventTypeOrderConfirmed marks a COD order moving to CONFIRMED.
	EventTypeOrderConfirmed = "order.confirmed"

	// RecipientCustomer targets the buyer who placed the order.
	RecipientCustomer = "customer"
	// RecipientFlorist targets fulfillment staff.
	RecipientFlorist = "florist"
)

// OrderEvent is the message published to the order events topic. Keyed by
// order number so every event for one order lands on the same partition.
type OrderEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uuid.UUID       `json:"user_id"`
	RecipientType string          `json:"recipient_type"`
	RecipientID   uuid.UUID       `json:"recipient_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
