package models

import (
	"time"

	"ms-preorder/internal/money"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

// OrderEvent is published after an order write commits.
type OrderEvent struct {
	Type       string       `json:"type"`
	OrderID    string       `json:"order_id"`
	Day        string       `json:"day"`
	OrderNo    int          `json:"order_no"`
	UserID     string       `json:"user_id"`
	Amount     money.Amount `json:"amount"`
	FromStatus OrderStatus  `json:"from_status,omitempty"`
	Status     OrderStatus  `json:"status"`
	ChangedBy  string       `json:"changed_by,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewOrderEvent(eventType string, o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    o.ID,
		Day:        o.Day,
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		Amount:     o.Amount,
		Status:     o.Status,
		OccurredAt: at,
	}
}
