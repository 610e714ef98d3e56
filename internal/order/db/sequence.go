package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

const nextOrderNoQuery = `INSERT INTO order_sequences (day, last_no) VALUES (?, 1)
ON CONFLICT (day) DO UPDATE SET last_no = order_sequences.last_no + 1
RETURNING last_no`

// NextOrderNumber increments the day's counter and returns the new value.
// It must run inside the creation transaction: the upserted row stays locked
// until commit and a rollback gives the number back.
func (d *DB) NextOrderNumber(ctx context.Context, tx bun.IDB, day string) (int, error) {
	var n int
	if err := tx.NewRaw(nextOrderNoQuery, day).Scan(ctx, &n); err != nil {
		return 0, fmt.Errorf("next order number for %s: %w", day, err)
	}
	return n, nil
}
