package utils

import (
	"github.com/google/uuid"
)

// NewOrderID returns the opaque durable identifier of a new order.
func NewOrderID() string {
	return uuid.NewString()
}
