package analytics_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-preorder/internal/analytics"
	"ms-preorder/internal/models"
	"ms-preorder/internal/money"
	"ms-preorder/internal/order/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, db.CreateSchema(context.Background(), bunDB))
	return bunDB
}

func insertOrder(t *testing.T, bunDB *bun.DB, userID, day string, no int, amount string, status models.OrderStatus) {
	a, err := money.Parse(amount)
	require.NoError(t, err)
	now := time.Now()
	_, err = bunDB.NewInsert().Model(&models.Order{
		ID: uuid.NewString(), Day: day, OrderNo: no, UserID: userID, Amount: a,
		PaymentMode: "UPI", Status: status, CreatedAt: now, UpdatedAt: now,
	}).Exec(context.Background())
	require.NoError(t, err)
}

func TestDailyRevenue_CompletedOnly(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := analytics.NewService(bunDB)
	ctx := context.Background()

	insertOrder(t, bunDB, "u1", "2025-03-01", 1, "220.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u2", "2025-03-01", 2, "45.50", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-01", 3, "99.99", models.StatusPreparing)
	insertOrder(t, bunDB, "u3", "2025-03-01", 4, "10.00", models.StatusCancelled)
	insertOrder(t, bunDB, "u1", "2025-03-02", 1, "500.00", models.StatusCompleted)

	total, err := svc.DailyRevenue(ctx, nil, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "265.50", total.String())

	// a new preparing order leaves revenue unchanged
	insertOrder(t, bunDB, "u4", "2025-03-01", 5, "70.00", models.StatusPreparing)
	again, err := svc.DailyRevenue(ctx, bunDB, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, total, again)

	empty, err := svc.DailyRevenue(ctx, nil, "2030-01-01")
	require.NoError(t, err)
	assert.Equal(t, money.Amount(0), empty)
}

func TestDailyRevenue_ExactSum(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := analytics.NewService(bunDB)

	// 0.10 added a thousand times is exactly 100.00
	for i := 1; i <= 1000; i++ {
		insertOrder(t, bunDB, "u1", "2025-03-01", i, "0.10", models.StatusCompleted)
	}
	total, err := svc.DailyRevenue(context.Background(), nil, "2025-03-01")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100").Equal(total.Decimal()))
}

func TestDashboardStats(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := analytics.NewService(bunDB)
	ctx := context.Background()

	_, err := bunDB.NewInsert().Model(&[]models.MenuItem{
		{Name: "Idli", Price: decimal.RequireFromString("30"), Availability: true},
		{Name: "Vada", Price: decimal.RequireFromString("25"), Availability: false},
	}).Exec(ctx)
	require.NoError(t, err)

	insertOrder(t, bunDB, "u1", "2025-02-28", 1, "50.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-01", 1, "120.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u2", "2025-03-01", 2, "80.00", models.StatusReady)
	insertOrder(t, bunDB, "u3", "2025-03-01", 3, "40.00", models.StatusPreparing)

	stats, err := svc.DashboardStats(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", stats.Date)
	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, 1, stats.ActiveMenu)
	assert.Equal(t, 3, stats.TodayOrders)
	assert.Equal(t, "120.00", stats.TodayRevenue.String())
	assert.Equal(t, 1, stats.StatusBreakdown[models.StatusReady])
	assert.Equal(t, 0, stats.StatusBreakdown[models.StatusCancelled])
	assert.Len(t, stats.StatusBreakdown, len(models.AllStatuses))
}

func TestUserTotalSpent(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := analytics.NewService(bunDB)

	insertOrder(t, bunDB, "u1", "2025-03-01", 1, "120.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-02", 1, "30.25", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-02", 2, "99.00", models.StatusCancelled)
	insertOrder(t, bunDB, "u2", "2025-03-02", 3, "10.00", models.StatusCompleted)

	spend, err := svc.UserTotalSpent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, spend.CompletedOrders)
	assert.Equal(t, "150.25", spend.TotalSpent.String())

	none, err := svc.UserTotalSpent(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, none.CompletedOrders)
	assert.Equal(t, money.Amount(0), none.TotalSpent)
}

func TestRevenueReport(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := analytics.NewService(bunDB)

	insertOrder(t, bunDB, "u1", "2025-03-01", 1, "10.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-01", 2, "15.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-03", 1, "5.00", models.StatusCompleted)
	insertOrder(t, bunDB, "u1", "2025-03-05", 1, "7.00", models.StatusCompleted)

	rows, err := svc.RevenueReport(context.Background(), "2025-03-01", "2025-03-04")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-03-01", rows[0].Date)
	assert.Equal(t, "25.00", rows[0].Revenue.String())
	assert.Equal(t, 2, rows[0].CompletedOrders)
	assert.Equal(t, "2025-03-03", rows[1].Date)
}

func TestQueuePosition(t *testing.T) {
	assert.Equal(t, 7, analytics.QueuePosition(models.Order{OrderNo: 7}))
}
