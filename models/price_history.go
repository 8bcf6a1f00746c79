package models

import "time"

// PriceHistory is an append-only ledger of observed prices for a listing.
// Rows are never updated; they are only removed when the parent listing
// is deleted.
type PriceHistory struct {
	ID            int64     `json:"id" db:"id"`
	ListingID     int64     `json:"listing_id" db:"listing_id"`
	Price         float64   `json:"price" db:"price"`
	PriceCurrency string    `json:"price_currency" db:"price_currency"`
	RecordedAt    time.Time `json:"recorded_at" db:"recorded_at"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

func (PriceHistory) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		listing_id BIGINT NOT NULL REFERENCES car_listings(id) ON DELETE CASCADE,
		price NUMERIC(14,2) NOT NULL,
		price_currency CHAR(3) NOT NULL DEFAULT 'CLP',
		recorded_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_price_history_listing ON price_history(listing_id, recorded_at);`
}
