package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Entry is the authoritative price of one menu item at lookup time.
type Entry struct {
	ItemID    int64
	Name      string
	UnitPrice decimal.Decimal
	Available bool
}

// Lookup resolves item prices. idb is the caller's transaction so a
// database-backed catalog reads a snapshot consistent with the order write;
// implementations that are not database-backed ignore it.
type Lookup interface {
	ResolvePrices(ctx context.Context, idb bun.IDB, itemIDs []int64) (map[int64]Entry, error)
}

// UnknownItemError lists requested ids with no catalog entry.
type UnknownItemError struct {
	ItemIDs []int64
}

func (e *UnknownItemError) Error() string {
	ids := make([]string, len(e.ItemIDs))
	for i, id := range e.ItemIDs {
		ids[i] = fmt.Sprint(id)
	}
	return "unknown menu items: " + strings.Join(ids, ", ")
}

// MissingItems reports the requested ids absent from found, or nil.
func MissingItems(itemIDs []int64, found map[int64]Entry) error {
	var unknown []int64
	seen := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		if _, ok := found[id]; !ok && !seen[id] {
			unknown = append(unknown, id)
		}
		seen[id] = true
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return &UnknownItemError{ItemIDs: unknown}
}
