package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-preorder/internal/analytics"
	"ms-preorder/internal/auth"
	"ms-preorder/internal/logger"
	"ms-preorder/internal/models"
	"ms-preorder/internal/order"
	"ms-preorder/internal/pickup"
	"ms-preorder/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Analytics    *analytics.Service
	QR           *pickup.QRGenerator
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, qr *pickup.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Analytics:    orderService.Analytics,
		QR:           qr,
		Logger:       log,
	}
}

// RegisterRoutes mounts the order routes. Identity must already be in the
// request context.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/user", h.GetUserOrders)
		r.Put("/cancel/{orderId}", h.CancelOrder)
		r.Get("/{orderId}", h.GetOrder)
		r.Get("/{orderId}/ticket", h.GetPickupTicket)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))

		r.Route("/admin-routes", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/pickup/verify", h.VerifyPickup)
			r.Get("/{orderId}", h.GetOrderForStaff)
			r.Patch("/{orderId}", h.UpdateOrderStatus)
		})
		r.Get("/admin/stats", h.GetDashboardStats)
		r.Get("/reports/user/{userId}/total", h.GetUserTotalSpent)
		r.Get("/reports/revenue", h.GetRevenueReport)
	})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to decode request body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.UserID = auth.UserID(r.Context())
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	resp, err := h.OrderService.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateOrder: order %s placed as #%d", resp.OrderID, resp.OrderNo))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Order placed successfully", resp))
}

func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	orders, err := h.OrderService.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, "GetUserOrders", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Orders retrieved", orders))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.loadOwnedOrder(r, orderID)
	if err != nil {
		h.writeError(w, "GetOrder", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Order retrieved", orderData))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	if _, err := h.loadOwnedOrder(r, orderID); err != nil {
		h.writeError(w, "CancelOrder", err)
		return
	}

	if err := h.OrderService.CancelOrder(r.Context(), orderID, auth.UserID(r.Context())); err != nil {
		h.writeError(w, "CancelOrder", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Order cancelled successfully", nil))
}
