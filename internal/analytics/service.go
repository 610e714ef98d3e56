package analytics

import (
	"context"
	"fmt"

	"ms-preorder/internal/models"
	"ms-preorder/internal/money"

	"github.com/uptrace/bun"
)

// Service derives revenue and queue views from the order ledger. Nothing is
// cached: every call reads the current rows.
type Service struct {
	bun *bun.DB
	db  *DB
}

func NewService(bunDB *bun.DB) *Service {
	return &Service{bun: bunDB, db: NewDB()}
}

// DailyRevenue is the sum of amounts of the day's completed orders.
func (s *Service) DailyRevenue(ctx context.Context, idb bun.IDB, day string) (money.Amount, error) {
	if idb == nil {
		idb = s.bun
	}
	total, err := s.db.SumCompletedRevenue(ctx, idb, day)
	if err != nil {
		return 0, fmt.Errorf("daily revenue for %s: %w", day, err)
	}
	return total, nil
}

// QueuePosition is the order's number within its day.
func QueuePosition(o models.Order) int {
	return o.QueuePosition()
}

// DashboardStats reads the admin dashboard counters in one snapshot.
func (s *Service) DashboardStats(ctx context.Context, day string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		Date:            day,
		StatusBreakdown: make(map[models.OrderStatus]int, len(models.AllStatuses)),
	}
	for _, st := range models.AllStatuses {
		stats.StatusBreakdown[st] = 0
	}

	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if stats.TotalOrders, err = s.db.CountOrders(ctx, tx); err != nil {
			return err
		}
		if stats.ActiveMenu, err = s.db.CountActiveMenu(ctx, tx); err != nil {
			return err
		}
		if stats.TodayRevenue, err = s.db.SumCompletedRevenue(ctx, tx, day); err != nil {
			return err
		}
		counts, err := s.db.CountByStatus(ctx, tx, day)
		if err != nil {
			return err
		}
		for _, c := range counts {
			stats.StatusBreakdown[c.Status] = c.Count
			stats.TodayOrders += c.Count
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// UserTotalSpent sums the user's completed orders.
func (s *Service) UserTotalSpent(ctx context.Context, userID string) (*models.UserSpend, error) {
	n, total, err := s.db.UserCompletedSpend(ctx, s.bun, userID)
	if err != nil {
		return nil, fmt.Errorf("user total spent: %w", err)
	}
	return &models.UserSpend{UserID: userID, CompletedOrders: n, TotalSpent: total}, nil
}

// RevenueReport lists completed revenue per day between from and to inclusive.
// Days without completed orders are omitted.
func (s *Service) RevenueReport(ctx context.Context, from, to string) ([]models.DailyRevenue, error) {
	rows, err := s.db.RevenueByDay(ctx, s.bun, from, to)
	if err != nil {
		return nil, fmt.Errorf("revenue report: %w", err)
	}
	return rows, nil
}
