package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sourceBaseURLs is the allow-list of scraping sources. A dataSource that
// is not a key here is rejected; a known one is created in the sources
// table on first use.
var sourceBaseURLs = map[string]string{
	"yapo":   "https://www.yapo.cl",
	"fb_mkt": "https://www.facebook.com/marketplace",
	"kavak":  "https://www.kavak.com",
}

var allowedFuelTypes = map[string]bool{
	"gas":         true,
	"diesel":      true,
	"electricity": true,
	"hybrid":      true,
	"other":       true,
}

var allowedTransmissions = map[string]bool{
	"automatic": true,
	"manual":    true,
	"other":     true,
}

// firstCarYear is the year of invention of the automobile; no listing can
// predate it.
const firstCarYear = 1886

// ingestRequest is the flat record the scrapers post. Numeric fields are
// pointers so a missing field and a zero value can be told apart, and so
// a wrong JSON type surfaces as a decode error instead of a silent zero.
type ingestRequest struct {
	Brand         string   `json:"brand"`
	Model         string   `json:"model"`
	Year          *int     `json:"year"`
	Km            *float64 `json:"km"`
	Version       string   `json:"version"`
	Transmission  *string  `json:"transmission"`
	PriceActual   *float64 `json:"priceActual"`
	PriceOriginal *float64 `json:"priceOriginal"`
	Location      string   `json:"location"`
	FuelType      *string  `json:"fuelType"`
	PostURL       string   `json:"postUrl"`
	ImgURL        string   `json:"imgUrl"`
	DataSource    string   `json:"dataSource"`
	PublishedAt   string   `json:"publishedAt"`
	ScrapedAt     string   `json:"scrapedAt"`
}

// bindErrorMessage maps a JSON decode failure to the stable error string
// for the field that had the wrong type.
func bindErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "year", "km", "priceActual", "priceOriginal":
			return "invalid numeric type"
		case "fuelType":
			return "invalid fuelType type"
		case "transmission":
			return "invalid transmission type"
		}
	}
	return "invalid or missing JSON body"
}

// validate runs the ingestion checks in order and returns the first
// failure as a stable message, or "" when the request is acceptable.
// Normalized enum values are written back into the request.
func (r *ingestRequest) validate() string {
	if r.Brand == "" || r.Model == "" ||
		r.Year == nil || *r.Year == 0 ||
		r.PriceActual == nil || *r.PriceActual == 0 ||
		r.Location == "" || r.PostURL == "" || r.DataSource == "" {
		return "missing required fields"
	}
	if r.Km == nil || r.PriceOriginal == nil {
		return "invalid numeric type"
	}
	if *r.PriceActual < 0 || *r.PriceOriginal < 0 {
		return "negative price"
	}
	if *r.Km < 0 {
		return "negative mileage"
	}
	if *r.Year < firstCarYear {
		return "invalid year"
	}
	if r.FuelType == nil {
		return "invalid fuelType type"
	}
	if r.Transmission == nil {
		return "invalid transmission type"
	}
	fuel := strings.ToLower(*r.FuelType)
	if !allowedFuelTypes[fuel] {
		return "invalid fuelType"
	}
	transmission := strings.ToLower(*r.Transmission)
	if !allowedTransmissions[transmission] {
		return "invalid transmission"
	}
	*r.FuelType = fuel
	*r.Transmission = transmission
	return ""
}

// trimName returns the version label from the source, or the synthesized
// "{brand}-{model}-{year}" fallback when the source omitted it.
func (r *ingestRequest) trimName() string {
	if r.Version != "" {
		return r.Version
	}
	return fmt.Sprintf("%s-%s-%d", r.Brand, r.Model, *r.Year)
}

// parseTimestamp parses an RFC3339 timestamp, falling back to the given
// default when the field is empty or unparsable.
func parseTimestamp(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	return t
}

// CreateCarListing ingests one scraped listing: validates the flat record,
// resolves or creates the brand/model/version/trim taxonomy, and upserts
// the listing keyed by its URL. The whole resolve-or-create chain runs in
// a single transaction so a mid-chain failure leaves no orphaned rows.
func CreateCarListing(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	baseURL, ok := sourceBaseURLs[req.DataSource]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source"})
		return
	}

	tx, err := DB.Begin()
	if err != nil {
		fmt.Printf("ingest begin tx: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer tx.Rollback()

	sourceID, err := findOrCreateSource(tx, req.DataSource, baseURL)
	if err != nil {
		fmt.Printf("ingest resolve source: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	brandID, err := findOrCreateBrand(tx, req.Brand)
	if err != nil {
		fmt.Printf("ingest resolve brand: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	modelID, err := findOrCreateModel(tx, brandID, req.Model)
	if err != nil {
		fmt.Printf("ingest resolve model: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	versionID, err := findOrCreateVersion(tx, modelID, *req.Year)
	if err != nil {
		fmt.Printf("ingest resolve version: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	trimID, err := findOrCreateTrim(tx, versionID, req.trimName(), *req.FuelType, *req.Transmission)
	if err != nil {
		fmt.Printf("ingest resolve trim: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	now := time.Now()
	publishedAt := parseTimestamp(req.PublishedAt, now)
	scrapedAt := parseTimestamp(req.ScrapedAt, now)

	// The most recently scraped row for this URL is the comparison target.
	var existing struct {
		ID          int64
		Price       float64
		Mileage     float64
		Location    string
		PublishedAt time.Time
	}
	err = tx.QueryRow(
		`SELECT id, price, mileage, location, published_at
		 FROM car_listings WHERE url = $1
		 ORDER BY scraped_at DESC, id DESC LIMIT 1`,
		req.PostURL,
	).Scan(&existing.ID, &existing.Price, &existing.Mileage, &existing.Location, &existing.PublishedAt)

	if err == sql.ErrNoRows {
		listing, err := insertListing(tx, req, sourceID, trimID, publishedAt, scrapedAt)
		if err != nil {
			fmt.Printf("ingest create listing: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if err := tx.Commit(); err != nil {
			fmt.Printf("ingest commit: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"newListing": listing})
		return
	}
	if err != nil {
		fmt.Printf("ingest lookup listing: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	// A re-scrape that omits publishedAt keeps the stored publication date.
	if req.PublishedAt == "" {
		publishedAt = existing.PublishedAt
	}

	unchanged := existing.Price == *req.PriceActual &&
		existing.Mileage == *req.Km &&
		existing.Location == req.Location &&
		existing.PublishedAt.Equal(publishedAt)
	if unchanged {
		if err := tx.Commit(); err != nil {
			fmt.Printf("ingest commit: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Listing unchanged"})
		return
	}

	_, err = tx.Exec(
		`UPDATE car_listings
		 SET price = $1, mileage = $2, location = $3, published_at = $4, scraped_at = $5
		 WHERE id = $6`,
		*req.PriceActual, *req.Km, req.Location, publishedAt, scrapedAt, existing.ID,
	)
	if err != nil {
		fmt.Printf("ingest update listing: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if existing.Price != *req.PriceActual {
		_, err = tx.Exec(
			`INSERT INTO price_history (listing_id, price, price_currency, recorded_at)
			 VALUES ($1, $2, $3, $4)`,
			existing.ID, *req.PriceActual, defaultCurrency, now,
		)
		if err != nil {
			fmt.Printf("ingest record price: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("ingest commit: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updatedListing": gin.H{
		"id":           existing.ID,
		"url":          req.PostURL,
		"price":        *req.PriceActual,
		"mileage":      *req.Km,
		"location":     req.Location,
		"published_at": publishedAt,
		"scraped_at":   scrapedAt,
	}})
}

const defaultCurrency = "CLP"

// insertListing creates the seller placeholder, the listing row, its
// initial price history entry and the optional image, all on the caller's
// transaction. It returns the response payload for the new listing.
func insertListing(tx *sql.Tx, req ingestRequest, sourceID, trimID uuid.UUID, publishedAt, scrapedAt time.Time) (gin.H, error) {
	// Sellers are not deduplicated yet; every ingestion creates a fresh
	// placeholder with a time-keyed email to dodge the unique constraint.
	sellerID := uuid.New()
	sellerEmail := fmt.Sprintf("placeholder+%d@carplace.local", time.Now().UnixNano())
	_, err := tx.Exec(
		`INSERT INTO sellers (id, name, email, type) VALUES ($1, $2, $3, $4)`,
		sellerID, "placeholder", sellerEmail, "unknown",
	)
	if err != nil {
		return nil, fmt.Errorf("create seller: %w", err)
	}

	title := fmt.Sprintf("%s %s %d", req.Brand, req.Model, *req.Year)
	var listingID int64
	err = tx.QueryRow(
		`INSERT INTO car_listings
		 (seller_id, source_id, trim_id, url, title, price, price_currency, year, mileage, location, published_at, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		sellerID, sourceID, trimID, req.PostURL, title, *req.PriceActual, defaultCurrency,
		*req.Year, *req.Km, req.Location, publishedAt, scrapedAt,
	).Scan(&listingID)
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO price_history (listing_id, price, price_currency, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		listingID, *req.PriceActual, defaultCurrency, scrapedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record initial price: %w", err)
	}

	if req.ImgURL != "" {
		_, err = tx.Exec(
			`INSERT INTO images (listing_id, url) VALUES ($1, $2)`,
			listingID, req.ImgURL,
		)
		if err != nil {
			return nil, fmt.Errorf("create image: %w", err)
		}
	}

	return gin.H{
		"id":             listingID,
		"seller_id":      sellerID,
		"source_id":      sourceID,
		"trim_id":        trimID,
		"url":            req.PostURL,
		"title":          title,
		"price":          *req.PriceActual,
		"price_currency": defaultCurrency,
		"year":           *req.Year,
		"mileage":        *req.Km,
		"location":       req.Location,
		"published_at":   publishedAt,
		"scraped_at":     scrapedAt,
	}, nil
}

// The find-or-create helpers below rely on the natural-key unique
// constraints: a lost insert race falls through ON CONFLICT DO NOTHING
// and the follow-up read returns the winner's row.

func findOrCreateSource(tx *sql.Tx, name, baseURL string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(`SELECT id FROM sources WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, err
	}
	err = tx.QueryRow(
		`INSERT INTO sources (name, base_url) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING RETURNING id`,
		name, baseURL,
	).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(`SELECT id FROM sources WHERE name = $1`, name).Scan(&id)
	}
	return id, err
}

func findOrCreateBrand(tx *sql.Tx, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(`SELECT id FROM brands WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, err
	}
	err = tx.QueryRow(
		`INSERT INTO brands (name) VALUES ($1)
		 ON CONFLICT (name) DO NOTHING RETURNING id`,
		name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(`SELECT id FROM brands WHERE name = $1`, name).Scan(&id)
	}
	return id, err
}

func findOrCreateModel(tx *sql.Tx, brandID uuid.UUID, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(
		`SELECT id FROM car_models WHERE brand_id = $1 AND name = $2`,
		brandID, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, err
	}
	err = tx.QueryRow(
		`INSERT INTO car_models (brand_id, name) VALUES ($1, $2)
		 ON CONFLICT (brand_id, name) DO NOTHING RETURNING id`,
		brandID, name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(
			`SELECT id FROM car_models WHERE brand_id = $1 AND name = $2`,
			brandID, name,
		).Scan(&id)
	}
	return id, err
}

func findOrCreateVersion(tx *sql.Tx, modelID uuid.UUID, year int) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(
		`SELECT id FROM versions WHERE model_id = $1 AND year = $2`,
		modelID, year,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, err
	}
	err = tx.QueryRow(
		`INSERT INTO versions (model_id, year) VALUES ($1, $2)
		 ON CONFLICT (model_id, year) DO NOTHING RETURNING id`,
		modelID, year,
	).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(
			`SELECT id FROM versions WHERE model_id = $1 AND year = $2`,
			modelID, year,
		).Scan(&id)
	}
	return id, err
}

func findOrCreateTrim(tx *sql.Tx, versionID uuid.UUID, name, fuelType, transmissionType string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(
		`SELECT id FROM trims WHERE version_id = $1 AND name = $2`,
		versionID, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, err
	}
	err = tx.QueryRow(
		`INSERT INTO trims (version_id, name, motor_size, fuel_type, transmission_type)
		 VALUES ($1, $2, -1, $3, $4)
		 ON CONFLICT (version_id, name) DO NOTHING RETURNING id`,
		versionID, name, fuelType, transmissionType,
	).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(
			`SELECT id FROM trims WHERE version_id = $1 AND name = $2`,
			versionID, name,
		).Scan(&id)
	}
	return id, err
}
