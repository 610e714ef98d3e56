package order_api

import (
	"fmt"
	"net/http"

	"ms-preorder/internal/auth"
	"ms-preorder/internal/models"
	"ms-preorder/internal/order"
)

// loadOwnedOrder returns the order when the caller placed it or is staff.
// Other callers get ErrNotFound so order ids cannot be guessed.
func (h *Handler) loadOwnedOrder(r *http.Request, orderID string) (*models.OrderWithItems, error) {
	orderData, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		return nil, err
	}

	userID := auth.UserID(r.Context())
	if orderData.UserID != userID && !auth.IsStaff(r.Context()) {
		h.Logger.LogSecurity("ORDER_OWNERSHIP", fmt.Sprintf("user %s requested order %s of user %s", userID, orderID, orderData.UserID))
		return nil, order.ErrNotFound
	}
	return orderData, nil
}
