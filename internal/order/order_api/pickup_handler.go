package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-preorder/internal/auth"
	"ms-preorder/internal/order"
	"ms-preorder/internal/utils"

	"github.com/go-chi/chi/v5"
)

// GetPickupTicket renders the caller's pickup pass. ?size= is clamped by the
// generator.
func (h *Handler) GetPickupTicket(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.loadOwnedOrder(r, orderID)
	if err != nil {
		h.writeError(w, "GetPickupTicket", err)
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.QR.GenerateQR(orderData.Order, size)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPickupTicket: failed to render QR: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render pickup ticket", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// VerifyPickup checks a scanned pass at the counter and returns the order it
// belongs to.
func (h *Handler) VerifyPickup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "token is required"))
		return
	}

	pass, err := h.QR.Open(body.Token)
	if err != nil {
		h.Logger.LogSecurity("PICKUP_PASS", fmt.Sprintf("staff %s scanned an invalid pass: %v", auth.UserID(r.Context()), err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid pickup pass", err.Error()))
		return
	}

	orderData, err := h.OrderService.GetOrder(r.Context(), pass.OrderID)
	if err != nil {
		h.writeError(w, "VerifyPickup", err)
		return
	}
	if orderData.Day != pass.Day || orderData.OrderNo != pass.OrderNo {
		h.Logger.LogSecurity("PICKUP_PASS", fmt.Sprintf("pass for order %s does not match #%d on %s", pass.OrderID, orderData.OrderNo, orderData.Day))
		h.writeError(w, "VerifyPickup", order.ErrNotFound)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Pickup pass verified", orderData))
}
