package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// keeperPerURL selects, per URL group, the row with the latest scraped_at
// (id as tie-break for rows scraped in the same instant). Everything else
// in the group is a duplicate.
const keeperPerURL = `SELECT DISTINCT ON (url) id FROM car_listings ORDER BY url, scraped_at DESC, id DESC`

// DeleteDuplicateListings resolves duplicate listings per URL. The policy
// query param selects what happens to the duplicates' data:
//
//	discard (default): duplicates and their images/price history are dropped
//	merge: price points and images are folded into the keeper first
func DeleteDuplicateListings(c *gin.Context) {
	policy := c.DefaultQuery("policy", "discard")

	var count int64
	var err error
	switch policy {
	case "discard":
		count, err = discardDuplicates()
	case "merge":
		count, err = mergeDuplicates()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid policy"})
		return
	}
	if err != nil {
		fmt.Printf("delete duplicates (%s) error: %v\n", policy, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete duplicates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deletedDuplicates": gin.H{"count": count}})
}

// FixListings is the compatibility route for the merge policy.
func FixListings(c *gin.Context) {
	count, err := mergeDuplicates()
	if err != nil {
		fmt.Printf("fix listings error: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fix listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Duplicates merged",
		"deletedDuplicates": gin.H{"count": count},
	})
}

func discardDuplicates() (int64, error) {
	tx, err := DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM images WHERE listing_id NOT IN (` + keeperPerURL + `)`,
	); err != nil {
		return 0, fmt.Errorf("delete duplicate images: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM price_history WHERE listing_id NOT IN (` + keeperPerURL + `)`,
	); err != nil {
		return 0, fmt.Errorf("delete duplicate price history: %w", err)
	}
	res, err := tx.Exec(
		`DELETE FROM car_listings WHERE id NOT IN (` + keeperPerURL + `)`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate listings: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

// mergeDuplicates keeps the most recently scraped listing per URL but
// preserves the siblings' price signal: each duplicate's price becomes a
// historical point on the keeper (unless an identical one exists) and its
// images are reassigned before the duplicate row is deleted.
func mergeDuplicates() (int64, error) {
	tx, err := DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT id, url, price, price_currency, scraped_at
		 FROM car_listings ORDER BY url, scraped_at DESC, id DESC`,
	)
	if err != nil {
		return 0, fmt.Errorf("load listings: %w", err)
	}

	type listingRow struct {
		ID        int64
		URL       string
		Price     float64
		Currency  string
		ScrapedAt time.Time
	}
	var all []listingRow
	for rows.Next() {
		var l listingRow
		if err := rows.Scan(&l.ID, &l.URL, &l.Price, &l.Currency, &l.ScrapedAt); err != nil {
			rows.Close()
			return 0, err
		}
		all = append(all, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var deleted int64
	var keeper listingRow
	for i, l := range all {
		if i == 0 || l.URL != keeper.URL {
			keeper = l
			continue
		}

		var havePoint bool
		err := tx.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM price_history
			 WHERE listing_id = $1 AND price = $2 AND price_currency = $3)`,
			keeper.ID, l.Price, l.Currency,
		).Scan(&havePoint)
		if err != nil {
			return 0, fmt.Errorf("check price point: %w", err)
		}
		if !havePoint {
			if _, err := tx.Exec(
				`INSERT INTO price_history (listing_id, price, price_currency, recorded_at)
				 VALUES ($1, $2, $3, $4)`,
				keeper.ID, l.Price, l.Currency, l.ScrapedAt,
			); err != nil {
				return 0, fmt.Errorf("merge price point: %w", err)
			}
		}

		if _, err := tx.Exec(
			`UPDATE images SET listing_id = $1 WHERE listing_id = $2`,
			keeper.ID, l.ID,
		); err != nil {
			return 0, fmt.Errorf("reassign images: %w", err)
		}
		if _, err := tx.Exec(
			`DELETE FROM price_history WHERE listing_id = $1`, l.ID,
		); err != nil {
			return 0, fmt.Errorf("delete duplicate price history: %w", err)
		}
		if _, err := tx.Exec(
			`DELETE FROM car_listings WHERE id = $1`, l.ID,
		); err != nil {
			return 0, fmt.Errorf("delete duplicate listing: %w", err)
		}
		deleted++
	}

	return deleted, tx.Commit()
}
