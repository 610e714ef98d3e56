package models

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatusLog records one status write.
type OrderStatusLog struct {
	bun.BaseModel `bun:"table:order_status_log,alias:sl"`

	ID         int64       `bun:"id,pk,autoincrement" json:"-"`
	OrderID    string      `bun:"order_id,notnull" json:"-"`
	FromStatus OrderStatus `bun:"from_status" json:"from_status,omitempty"`
	ToStatus   OrderStatus `bun:"to_status,notnull" json:"to_status"`
	ChangedBy  string      `bun:"changed_by,notnull" json:"changed_by"`
	ChangedAt  time.Time   `bun:"changed_at,notnull" json:"changed_at"`
}
