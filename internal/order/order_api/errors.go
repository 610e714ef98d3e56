package order_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-preorder/internal/order"
	"ms-preorder/internal/utils"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidItems),
		errors.Is(err, order.ErrInvalidDay):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, order.ErrSequencingConflict),
		errors.Is(err, order.ErrStorageFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps an engine error onto the response envelope. Invalid item
// details are returned so the client can fix the cart.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}

	resp := utils.ErrorResponse(http.StatusText(status), err.Error())
	var invalid *order.InvalidItemsError
	if errors.As(err, &invalid) {
		resp.Data = invalid
	}
	utils.WriteJSON(w, status, resp)
}
