package catalogtest

import (
	"context"
	"sync"

	"ms-preorder/internal/catalog"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Static is an in-memory catalog.Lookup for tests.
type Static struct {
	mu      sync.RWMutex
	entries map[int64]catalog.Entry
}

func NewStatic(entries ...catalog.Entry) *Static {
	s := &Static{entries: make(map[int64]catalog.Entry, len(entries))}
	for _, e := range entries {
		s.entries[e.ItemID] = e
	}
	return s
}

// SetPrice changes the price of an item, adding it if absent.
func (s *Static) SetPrice(itemID int64, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[itemID]
	e.ItemID = itemID
	e.UnitPrice = price
	s.entries[itemID] = e
}

func (s *Static) SetAvailable(itemID int64, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[itemID]; ok {
		e.Available = available
		s.entries[itemID] = e
	}
}

func (s *Static) ResolvePrices(_ context.Context, _ bun.IDB, itemIDs []int64) (map[int64]catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[int64]catalog.Entry, len(itemIDs))
	for _, id := range itemIDs {
		if e, ok := s.entries[id]; ok {
			found[id] = e
		}
	}
	if err := catalog.MissingItems(itemIDs, found); err != nil {
		return nil, err
	}
	return found, nil
}
