package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-preorder/internal/auth"
	"ms-preorder/internal/models"
	"ms-preorder/internal/utils"

	"github.com/go-chi/chi/v5"
)

// ListOrders serves the staff board: ?date=YYYY-MM-DD, today when absent.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")

	result, err := h.OrderService.ListOrders(r.Context(), day)
	if err != nil {
		h.writeError(w, "ListOrders", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Orders retrieved", result))
}

func (h *Handler) GetOrderForStaff(w http.ResponseWriter, r *http.Request) {
	orderData, err := h.OrderService.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, "GetOrderForStaff", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Order retrieved", orderData))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	status, err := models.ParseOrderStatus(body.Status)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid status", err.Error()))
		return
	}

	staffID := auth.UserID(r.Context())
	if err := h.OrderService.AdvanceStatus(r.Context(), orderID, status, staffID); err != nil {
		h.writeError(w, "UpdateOrderStatus", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("UpdateOrderStatus: order %s -> %s by %s", orderID, status, staffID))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Order status updated", map[string]string{
		"order_id": orderID,
		"status":   string(status),
	}))
}

func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Analytics.DashboardStats(r.Context(), h.OrderService.Today())
	if err != nil {
		h.writeError(w, "GetDashboardStats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Dashboard stats", stats))
}

func (h *Handler) GetUserTotalSpent(w http.ResponseWriter, r *http.Request) {
	spend, err := h.Analytics.UserTotalSpent(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, "GetUserTotalSpent", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("User total spent", spend))
}

// GetRevenueReport serves ?from=&to= (inclusive). Both default to today.
func (h *Handler) GetRevenueReport(w http.ResponseWriter, r *http.Request) {
	today := h.OrderService.Today()
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" {
		from = today
	}
	if to == "" {
		to = today
	}
	for _, d := range []string{from, to} {
		if _, err := utils.ParseDay(d); err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid date", err.Error()))
			return
		}
	}

	rows, err := h.Analytics.RevenueReport(r.Context(), from, to)
	if err != nil {
		h.writeError(w, "GetRevenueReport", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Revenue report", rows))
}
