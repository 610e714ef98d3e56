package db

import (
	"context"
	"time"

	"ms-preorder/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// InTx runs fn in a transaction at the driver's default isolation (read
// committed on Postgres) and commits when fn returns nil.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, nil, fn)
}

// ---------------- ORDERS ----------------

// InsertOrder → insert the order row and its item rows
func (d *DB) InsertOrder(ctx context.Context, idb bun.IDB, order *models.Order, items []models.OrderItem) error {
	if _, err := idb.NewInsert().Model(order).Exec(ctx); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	_, err := idb.NewInsert().Model(&items).Exec(ctx)
	return err
}

// GetOrderByID → fetch one order by its ID
func (d *DB) GetOrderByID(ctx context.Context, idb bun.IDB, id string) (*models.Order, error) {
	var order models.Order
	err := idb.NewSelect().
		Model(&order).
		Where("o.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderStatus → read only the status column, used to classify a rejected update
func (d *DB) GetOrderStatus(ctx context.Context, idb bun.IDB, id string) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := idb.NewSelect().
		Model((*models.Order)(nil)).
		Column("status").
		Where("o.id = ?", id).
		Limit(1).
		Scan(ctx, &status)
	return status, err
}

// UpdateStatusGuard sets the status only while the current status is one of from.
// It returns the number of rows changed, 0 or 1.
func (d *DB) UpdateStatusGuard(ctx context.Context, idb bun.IDB, id string, from []models.OrderStatus, to models.OrderStatus, at time.Time) (int64, error) {
	res, err := idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListOrdersByDay → all orders of a business day in queue order
func (d *DB) ListOrdersByDay(ctx context.Context, idb bun.IDB, day string) ([]models.Order, error) {
	orders := []models.Order{}
	err := idb.NewSelect().
		Model(&orders).
		Where("o.day = ?", day).
		Order("o.order_no ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrdersByUser → a user's orders, newest first
func (d *DB) ListOrdersByUser(ctx context.Context, idb bun.IDB, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := idb.NewSelect().
		Model(&orders).
		Where("o.user_id = ?", userID).
		Order("o.created_at DESC", "o.order_no DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ---------------- ITEMS ----------------

// GetOrderItems → item snapshot rows of one order
func (d *DB) GetOrderItems(ctx context.Context, idb bun.IDB, orderID string) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := idb.NewSelect().
		Model(&items).
		Where("oi.order_id = ?", orderID).
		Order("oi.item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------- STATUS LOG ----------------

func (d *DB) InsertStatusLog(ctx context.Context, idb bun.IDB, entry *models.OrderStatusLog) error {
	_, err := idb.NewInsert().Model(entry).Exec(ctx)
	return err
}

// GetStatusHistory → status writes of one order, oldest first
func (d *DB) GetStatusHistory(ctx context.Context, idb bun.IDB, orderID string) ([]models.OrderStatusLog, error) {
	history := []models.OrderStatusLog{}
	err := idb.NewSelect().
		Model(&history).
		Where("sl.order_id = ?", orderID).
		Order("sl.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return history, nil
}
