package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// MenuItem is owned by the menu service; the order engine only reads it.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu"`

	ItemID       int64           `bun:"item_id,pk,autoincrement" json:"item_id"`
	Name         string          `bun:"name,notnull" json:"name"`
	Category     string          `bun:"category" json:"category"`
	Price        decimal.Decimal `bun:"price,type:numeric(10,2),notnull" json:"price"`
	Availability bool            `bun:"availability,notnull" json:"availability"`
}
