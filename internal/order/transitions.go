package order

import (
	"fmt"
	"slices"

	"ms-preorder/internal/models"
)

// progress ranks the non-terminal path. cancelled is off the path.
var progress = map[models.OrderStatus]int{
	models.StatusPending:   0,
	models.StatusPreparing: 1,
	models.StatusReady:     2,
	models.StatusCompleted: 3,
}

var cancellableFrom = []models.OrderStatus{models.StatusPending, models.StatusPreparing}

// advanceSources lists the statuses an order may be in for a write of to.
// An empty result means no source allows it.
func advanceSources(to models.OrderStatus) []models.OrderStatus {
	if to == models.StatusCancelled {
		return cancellableFrom
	}
	rank, ok := progress[to]
	if !ok {
		return nil
	}
	var sources []models.OrderStatus
	for _, s := range models.AllStatuses {
		if r, onPath := progress[s]; onPath && r < rank && !s.Terminal() {
			sources = append(sources, s)
		}
	}
	return sources
}

// CanAdvance reports whether staff may move an order from one status to another.
func CanAdvance(from, to models.OrderStatus) bool {
	return slices.Contains(advanceSources(to), from)
}

// CanCancel reports whether a customer may cancel an order in status s.
func CanCancel(s models.OrderStatus) bool {
	return slices.Contains(cancellableFrom, s)
}

func transitionError(from, to models.OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func cancelError(from models.OrderStatus) error {
	return fmt.Errorf("%w: order is %s", ErrNotCancellable, from)
}
