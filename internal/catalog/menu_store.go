package catalog

import (
	"context"
	"fmt"

	"ms-preorder/internal/models"

	"github.com/uptrace/bun"
)

// MenuStore reads prices from the menu table.
type MenuStore struct{}

func NewMenuStore() *MenuStore {
	return &MenuStore{}
}

func (m *MenuStore) ResolvePrices(ctx context.Context, idb bun.IDB, itemIDs []int64) (map[int64]Entry, error) {
	if len(itemIDs) == 0 {
		return map[int64]Entry{}, nil
	}

	var items []models.MenuItem
	err := idb.NewSelect().
		Model(&items).
		Where("item_id IN (?)", bun.In(itemIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu prices: %w", err)
	}

	found := make(map[int64]Entry, len(items))
	for _, it := range items {
		found[it.ItemID] = Entry{
			ItemID:    it.ItemID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Available: it.Availability,
		}
	}

	if err := MissingItems(itemIDs, found); err != nil {
		return nil, err
	}
	return found, nil
}
