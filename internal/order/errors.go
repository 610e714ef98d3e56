package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrEmptyOrder         = errors.New("order has no items")
	ErrInvalidItems       = errors.New("invalid order items")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotCancellable     = errors.New("order can no longer be cancelled")
	ErrNotFound           = errors.New("order not found")
	ErrSequencingConflict = errors.New("order number conflict")
	ErrStorageFailure     = errors.New("order storage failure")
	ErrDuplicateRequest   = errors.New("order request already in progress")
	ErrInvalidDay         = errors.New("invalid business day")
)

// InvalidItemsError names the offending item ids. It matches ErrInvalidItems.
type InvalidItemsError struct {
	Unknown     []int64 `json:"unknown,omitempty"`
	Unavailable []int64 `json:"unavailable,omitempty"`
	BadQuantity []int64 `json:"bad_quantity,omitempty"`
}

func (e *InvalidItemsError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+joinIDs(e.Unknown))
	}
	if len(e.Unavailable) > 0 {
		parts = append(parts, "unavailable "+joinIDs(e.Unavailable))
	}
	if len(e.BadQuantity) > 0 {
		parts = append(parts, "bad quantity "+joinIDs(e.BadQuantity))
	}
	return ErrInvalidItems.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InvalidItemsError) Is(target error) bool {
	return target == ErrInvalidItems
}

func joinIDs(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	s := make([]string, len(sorted))
	for i, id := range sorted {
		s[i] = fmt.Sprint(id)
	}
	return "[" + strings.Join(s, ",") + "]"
}

var engineErrors = []error{
	ErrEmptyOrder, ErrInvalidItems, ErrInvalidTransition, ErrNotCancellable,
	ErrNotFound, ErrSequencingConflict, ErrStorageFailure, ErrDuplicateRequest, ErrInvalidDay,
}

// classify maps a raw storage error onto the engine's error set. Errors that
// already belong to the set pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range engineErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrSequencingConflict, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// retryable reports whether a fresh attempt may succeed.
func retryable(err error) bool {
	return errors.Is(err, ErrSequencingConflict) || errors.Is(err, ErrStorageFailure)
}
