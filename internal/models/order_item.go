package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	OrderID   string          `bun:"order_id,pk" json:"-"`
	ItemID    int64           `bun:"item_id,pk" json:"item_id"`
	Name      string          `bun:"name,notnull" json:"name"`
	Quantity  int             `bun:"quantity,notnull" json:"quantity"`
	UnitPrice decimal.Decimal `bun:"unit_price,type:numeric(12,4),notnull" json:"unit_price"`

	Order *Order `bun:"rel:belongs-to,join:order_id=id" json:"-"`
}
