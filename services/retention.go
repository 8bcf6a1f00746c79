package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Carplace-code/carplace-sub001/database"

	"github.com/lib/pq"
)

// RetentionAge is how long a listing may go without being re-scraped
// before the sweep removes it.
const RetentionAge = 30 * 24 * time.Hour

// RetentionSweeper periodically deletes listings that have not been
// scraped within RetentionAge, together with their images and price
// history.
type RetentionSweeper struct {
	interval time.Duration
}

func NewRetentionSweeper() *RetentionSweeper {
	return &RetentionSweeper{interval: 24 * time.Hour}
}

// SetInterval overrides the default daily sweep interval.
func (rs *RetentionSweeper) SetInterval(d time.Duration) {
	rs.interval = d
}

// Run starts the sweep loop, blocking until ctx is cancelled.
func (rs *RetentionSweeper) Run(ctx context.Context) {
	rs.sweep()

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.sweep()
		}
	}
}

func (rs *RetentionSweeper) sweep() {
	count, ids, err := DeleteListingsOlderThan(time.Now().Add(-RetentionAge))
	if err != nil {
		log.Printf("retention sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("retention sweep deleted %d listings: %v", count, ids)
	}
}

// DeleteListingsOlderThan removes every listing scraped before the cutoff,
// cascading over images and price history in one transaction. It returns
// the count and ids of the deleted listings.
func DeleteListingsOlderThan(cutoff time.Time) (int64, []int64, error) {
	tx, err := database.Database.Begin()
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM car_listings WHERE scraped_at < $1`, cutoff)
	if err != nil {
		return 0, nil, fmt.Errorf("select old listings: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, tx.Commit()
	}

	if _, err := tx.Exec(
		`DELETE FROM images WHERE listing_id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return 0, nil, fmt.Errorf("delete old images: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM price_history WHERE listing_id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return 0, nil, fmt.Errorf("delete old price history: %w", err)
	}
	res, err := tx.Exec(
		`DELETE FROM car_listings WHERE id = ANY($1)`, pq.Array(ids),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("delete old listings: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, nil, err
	}
	return count, ids, tx.Commit()
}
