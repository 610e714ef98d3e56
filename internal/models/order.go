package models

import (
	"time"

	"ms-preorder/internal/money"

	"github.com/uptrace/bun"
)

type OrderLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// CreateOrderRequest carries no amount: totals are always computed server side.
type CreateOrderRequest struct {
	UserID         string      `json:"-"`
	Items          []OrderLine `json:"items"`
	PaymentMode    string      `json:"payment_mode,omitempty"`
	PickupTime     *time.Time  `json:"pickup_time,omitempty"`
	IdempotencyKey string      `json:"-"`
}

type CreateOrderResponse struct {
	OrderID string       `json:"order_id"`
	OrderNo int          `json:"order_no"`
	Amount  money.Amount `json:"amount"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          string       `bun:"id,pk" json:"order_id"`
	Day         string       `bun:"day,notnull,unique:orders_day_order_no" json:"day"`
	OrderNo     int          `bun:"order_no,notnull,unique:orders_day_order_no" json:"order_no"`
	UserID      string       `bun:"user_id,notnull" json:"user_id"`
	Amount      money.Amount `bun:"amount,notnull" json:"amount"`
	PaymentMode string       `bun:"payment_mode,notnull" json:"payment_mode"`
	PickupTime  *time.Time   `bun:"pickup_time" json:"pickup_time,omitempty"`
	Status      OrderStatus  `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// QueuePosition is the order's place in the day's pickup queue.
func (o Order) QueuePosition() int {
	return o.OrderNo
}

type OrderWithItems struct {
	Order
	QueuePosition int              `json:"queue_position"`
	Items         []OrderItem      `json:"items"`
	History       []OrderStatusLog `json:"history"`
}

type DayOrders struct {
	Date         string       `json:"date"`
	TotalRevenue money.Amount `json:"totalRevenue"`
	Orders       []Order      `json:"orders"`
}
