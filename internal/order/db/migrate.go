package db

import (
	"context"
	"fmt"

	"ms-preorder/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// CreateSchema creates the engine tables from the bun models. Postgres
// deployments use the SQL migrations instead; this path serves sqlite.
func CreateSchema(ctx context.Context, idb bun.IDB) error {
	tables := []interface{}{
		(*models.MenuItem)(nil),
		(*models.Order)(nil),
		(*models.OrderSequence)(nil),
		(*models.OrderStatusLog)(nil),
	}
	for _, model := range tables {
		if _, err := idb.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table failed: %w", err)
		}
	}

	_, err := idb.NewCreateTable().
		Model((*models.OrderItem)(nil)).
		IfNotExists().
		ForeignKey(`("order_id") REFERENCES "orders" ("id") ON DELETE RESTRICT`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create table failed: %w", err)
	}

	_, err = idb.NewCreateIndex().
		Model((*models.Order)(nil)).
		Index("orders_user_id_idx").
		IfNotExists().
		Column("user_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index failed: %w", err)
	}
	return nil
}

// DefaultMenu mirrors the seed migration for stores created by CreateSchema.
var DefaultMenu = []models.MenuItem{
	{Name: "Masala Dosa", Category: "South Indian", Price: decimal.RequireFromString("50.00"), Availability: true},
	{Name: "Idli Sambar", Category: "South Indian", Price: decimal.RequireFromString("35.00"), Availability: true},
	{Name: "Paneer Thali", Category: "Meals", Price: decimal.RequireFromString("120.00"), Availability: true},
	{Name: "Veg Biryani", Category: "Meals", Price: decimal.RequireFromString("110.00"), Availability: true},
	{Name: "Samosa", Category: "Snacks", Price: decimal.RequireFromString("15.00"), Availability: true},
	{Name: "Filter Coffee", Category: "Beverages", Price: decimal.RequireFromString("20.00"), Availability: true},
	{Name: "Mango Lassi", Category: "Beverages", Price: decimal.RequireFromString("45.50"), Availability: false},
}

// SeedMenu inserts items when the menu table is empty and reports how many
// rows it wrote.
func SeedMenu(ctx context.Context, idb bun.IDB, items []models.MenuItem) (int, error) {
	count, err := idb.NewSelect().Model((*models.MenuItem)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count menu failed: %w", err)
	}
	if count > 0 || len(items) == 0 {
		return 0, nil
	}
	rows := make([]models.MenuItem, len(items))
	copy(rows, items)
	if _, err := idb.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return 0, fmt.Errorf("seed menu failed: %w", err)
	}
	return len(rows), nil
}
