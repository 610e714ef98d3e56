package models

import "ms-preorder/internal/money"

type DashboardStats struct {
	Date            string              `json:"date"`
	TotalOrders     int                 `json:"total_orders"`
	ActiveMenu      int                 `json:"active_menu"`
	TodayOrders     int                 `json:"today_orders"`
	TodayRevenue    money.Amount        `json:"total_revenue"`
	StatusBreakdown map[OrderStatus]int `json:"status_breakdown"`
}

type UserSpend struct {
	UserID          string       `json:"user_id"`
	CompletedOrders int          `json:"completed_orders"`
	TotalSpent      money.Amount `json:"total_spent"`
}

// DailyRevenue is one row of the revenue report.
type DailyRevenue struct {
	Date            string       `bun:"day" json:"date"`
	Revenue         money.Amount `bun:"revenue" json:"revenue"`
	CompletedOrders int          `bun:"completed_orders" json:"completed_orders"`
}
