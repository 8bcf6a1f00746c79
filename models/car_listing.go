package models

import (
	"time"

	"github.com/google/uuid"
)

// CarListing is one scraped advertisement. The URL is the upsert key:
// re-scrapes of the same URL update the row in place. Duplicate rows for
// a URL can still accumulate across scraper runs and are resolved by the
// dedup endpoint, which keeps the most recently scraped row per URL.
type CarListing struct {
	ID            int64     `json:"id" db:"id"`
	SellerID      uuid.UUID `json:"seller_id" db:"seller_id"`
	SourceID      uuid.UUID `json:"source_id" db:"source_id"`
	TrimID        uuid.UUID `json:"trim_id" db:"trim_id"`
	URL           string    `json:"url" db:"url"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description" db:"description"`
	Price         float64   `json:"price" db:"price"`
	PriceCurrency string    `json:"price_currency" db:"price_currency"`
	Year          int       `json:"year" db:"year"`
	Mileage       float64   `json:"mileage" db:"mileage"`
	ExteriorColor *string   `json:"exterior_color" db:"exterior_color"`
	InteriorColor *string   `json:"interior_color" db:"interior_color"`
	IsNew         bool      `json:"is_new" db:"is_new"`
	Location      string    `json:"location" db:"location"`
	PublishedAt   time.Time `json:"published_at" db:"published_at"`
	ScrapedAt     time.Time `json:"scraped_at" db:"scraped_at"`
}

func (CarListing) TableName() string {
	return "car_listings"
}

func (CarListing) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS car_listings (
		id BIGSERIAL PRIMARY KEY,
		seller_id UUID NOT NULL REFERENCES sellers(id) ON DELETE CASCADE,
		source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		trim_id UUID NOT NULL REFERENCES trims(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		price NUMERIC(14,2) NOT NULL,
		price_currency CHAR(3) NOT NULL DEFAULT 'CLP',
		year INT NOT NULL,
		mileage NUMERIC(12,1) NOT NULL DEFAULT 0,
		exterior_color TEXT,
		interior_color TEXT,
		is_new BOOLEAN NOT NULL DEFAULT FALSE,
		location TEXT NOT NULL,
		published_at TIMESTAMP WITH TIME ZONE NOT NULL,
		scraped_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_car_listings_url ON car_listings(url);
	CREATE INDEX IF NOT EXISTS idx_car_listings_scraped_at ON car_listings(scraped_at);`
}
