package models

import "time"

type Image struct {
	ID        int64     `json:"id" db:"id"`
	ListingID int64     `json:"listing_id" db:"listing_id"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Image) TableName() string {
	return "images"
}

func (Image) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS images (
		id BIGSERIAL PRIMARY KEY,
		listing_id BIGINT NOT NULL REFERENCES car_listings(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_images_listing ON images(listing_id);`
}
