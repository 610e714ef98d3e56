package analytics

import (
	"context"

	"ms-preorder/internal/models"
	"ms-preorder/internal/money"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations. Every query takes the caller's
// bun.IDB so several reads can share one transaction snapshot.
type DB struct{}

func NewDB() *DB {
	return &DB{}
}

// SumCompletedRevenue adds up the amounts of completed orders of a day
func (db *DB) SumCompletedRevenue(ctx context.Context, idb bun.IDB, day string) (money.Amount, error) {
	var total int64
	err := idb.NewRaw(
		"SELECT CAST(COALESCE(SUM(amount), 0) AS BIGINT) FROM orders WHERE day = ? AND status = ?",
		day, models.StatusCompleted,
	).Scan(ctx, &total)
	return money.Amount(total), err
}

// CountOrders counts every order ever placed
func (db *DB) CountOrders(ctx context.Context, idb bun.IDB) (int, error) {
	return idb.NewSelect().Model((*models.Order)(nil)).Count(ctx)
}

// CountActiveMenu counts menu items currently available
func (db *DB) CountActiveMenu(ctx context.Context, idb bun.IDB) (int, error) {
	return idb.NewSelect().
		Model((*models.MenuItem)(nil)).
		Where("availability = ?", true).
		Count(ctx)
}

type StatusCount struct {
	Status models.OrderStatus `bun:"status"`
	Count  int                `bun:"count"`
}

// CountByStatus groups a day's orders by status
func (db *DB) CountByStatus(ctx context.Context, idb bun.IDB, day string) ([]StatusCount, error) {
	var rows []StatusCount
	err := idb.NewRaw(
		"SELECT status, COUNT(*) AS count FROM orders WHERE day = ? GROUP BY status",
		day,
	).Scan(ctx, &rows)
	return rows, err
}

// UserCompletedSpend sums a user's completed orders
func (db *DB) UserCompletedSpend(ctx context.Context, idb bun.IDB, userID string) (int, money.Amount, error) {
	var row struct {
		Orders int   `bun:"orders"`
		Total  int64 `bun:"total"`
	}
	err := idb.NewRaw(`
		SELECT
			COUNT(*) AS orders,
			CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total
		FROM orders
		WHERE user_id = ? AND status = ?`,
		userID, models.StatusCompleted,
	).Scan(ctx, &row)
	return row.Orders, money.Amount(row.Total), err
}

// RevenueByDay returns completed revenue per business day in [from, to]
func (db *DB) RevenueByDay(ctx context.Context, idb bun.IDB, from, to string) ([]models.DailyRevenue, error) {
	rows := []models.DailyRevenue{}
	err := idb.NewRaw(`
		SELECT
			day,
			CAST(SUM(amount) AS BIGINT) AS revenue,
			COUNT(*) AS completed_orders
		FROM orders
		WHERE status = ? AND day >= ? AND day <= ?
		GROUP BY day
		ORDER BY day`,
		models.StatusCompleted, from, to,
	).Scan(ctx, &rows)
	return rows, err
}
