package models

import (
	"github.com/uptrace/bun"
)

// OrderSequence is the per-day order number counter.
type OrderSequence struct {
	bun.BaseModel `bun:"table:order_sequences"`

	Day    string `bun:"day,pk"`
	LastNo int    `bun:"last_no,notnull"`
}
