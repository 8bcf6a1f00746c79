package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// orderableFields whitelists the orderBy spec fields against columns.
var orderableFields = map[string]string{
	"scrapedAt":   "cl.scraped_at",
	"publishedAt": "cl.published_at",
	"price":       "cl.price",
	"mileage":     "cl.mileage",
	"year":        "cl.year",
}

var includableRelations = map[string]bool{
	"trim":         true,
	"seller":       true,
	"source":       true,
	"images":       true,
	"priceHistory": true,
}

// parseOrderBy turns "field dir" (e.g. "price asc") into an ORDER BY
// clause over whitelisted columns. Empty input falls back to the default
// scrapedAt desc ordering.
func parseOrderBy(raw string) (string, error) {
	if raw == "" {
		return "cl.scraped_at DESC", nil
	}
	parts := strings.Fields(raw)
	if len(parts) == 0 || len(parts) > 2 {
		return "", fmt.Errorf("invalid orderBy")
	}
	column, ok := orderableFields[parts[0]]
	if !ok {
		return "", fmt.Errorf("invalid orderBy")
	}
	direction := "DESC"
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
			direction = "ASC"
		case "desc":
			direction = "DESC"
		default:
			return "", fmt.Errorf("invalid orderBy")
		}
	}
	return column + " " + direction, nil
}

// parseInclude validates the comma-separated relation list.
func parseInclude(raw string) (map[string]bool, error) {
	include := make(map[string]bool)
	if raw == "" {
		return include, nil
	}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if !includableRelations[name] {
			return nil, fmt.Errorf("invalid include")
		}
		include[name] = true
	}
	return include, nil
}

// parsePageSize returns the requested page size clamped to maxPageSize.
// Absent or unusable values fall back to defaultPageSize.
func parsePageSize(raw string) int {
	s, err := strconv.Atoi(raw)
	if err != nil || s <= 0 {
		return defaultPageSize
	}
	if s > maxPageSize {
		return maxPageSize
	}
	return s
}

// GetCarListings returns a page of listings for the browse view, with
// optional filters and embedded relations.
func GetCarListings(c *gin.Context) {
	orderBy, err := parseOrderBy(c.Query("orderBy"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid orderBy"})
		return
	}

	include, err := parseInclude(c.Query("include"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid include"})
		return
	}

	pageSize := parsePageSize(c.Query("pageSize"))
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	offset := (page - 1) * pageSize

	var conditions []string
	var args []interface{}
	addFilter := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if brand := c.Query("brand"); brand != "" {
		addFilter("LOWER(b.name) = LOWER($%d)", brand)
	}
	if model := c.Query("model"); model != "" {
		addFilter("LOWER(m.name) = LOWER($%d)", model)
	}
	if yearMin := c.Query("year_min"); yearMin != "" {
		if y, err := strconv.Atoi(yearMin); err == nil {
			addFilter("cl.year >= $%d", y)
		}
	}
	if yearMax := c.Query("year_max"); yearMax != "" {
		if y, err := strconv.Atoi(yearMax); err == nil {
			addFilter("cl.year <= $%d", y)
		}
	}
	if priceMin := c.Query("price_min"); priceMin != "" {
		if p, err := strconv.ParseFloat(priceMin, 64); err == nil {
			addFilter("cl.price >= $%d", p)
		}
	}
	if priceMax := c.Query("price_max"); priceMax != "" {
		if p, err := strconv.ParseFloat(priceMax, 64); err == nil {
			addFilter("cl.price <= $%d", p)
		}
	}
	if fuelType := c.Query("fuelType"); fuelType != "" {
		addFilter("t.fuel_type = $%d", strings.ToLower(fuelType))
	}
	if transmission := c.Query("transmission"); transmission != "" {
		addFilter("t.transmission_type = $%d", strings.ToLower(transmission))
	}
	if source := c.Query("source"); source != "" {
		addFilter("so.name = $%d", source)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	fromClause := `
		FROM car_listings cl
		JOIN trims t ON cl.trim_id = t.id
		JOIN versions v ON t.version_id = v.id
		JOIN car_models m ON v.model_id = m.id
		JOIN brands b ON m.brand_id = b.id
		JOIN sellers se ON cl.seller_id = se.id
		JOIN sources so ON cl.source_id = so.id`

	query := fmt.Sprintf(`
		SELECT cl.id, cl.url, cl.title, cl.description, cl.price, cl.price_currency,
		       cl.year, cl.mileage, cl.is_new, cl.location, cl.published_at, cl.scraped_at,
		       t.id, t.name, t.motor_size, t.fuel_type, t.transmission_type,
		       b.name, m.name,
		       se.id, se.name, se.type,
		       so.id, so.name, so.base_url
		%s
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, fromClause, where, orderBy, len(args)+1, len(args)+2)

	rows, err := DB.Query(query, append(args, pageSize, offset)...)
	if err != nil {
		fmt.Printf("listings query error: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}
	defer rows.Close()

	var listings []gin.H
	for rows.Next() {
		var id int64
		var url, title, priceCurrency string
		var description sql.NullString
		var price, mileage, motorSize float64
		var year int
		var isNew bool
		var location string
		var publishedAt, scrapedAt time.Time
		var trimID, sellerID, sourceID uuid.UUID
		var trimName, fuelType, transType string
		var brandName, modelName string
		var sellerName, sellerType string
		var sourceName, sourceBaseURL string
		err := rows.Scan(
			&id, &url, &title, &description, &price, &priceCurrency,
			&year, &mileage, &isNew, &location, &publishedAt, &scrapedAt,
			&trimID, &trimName, &motorSize, &fuelType, &transType,
			&brandName, &modelName,
			&sellerID, &sellerName, &sellerType,
			&sourceID, &sourceName, &sourceBaseURL,
		)
		if err != nil {
			continue
		}

		listing := gin.H{
			"id":             id,
			"url":            url,
			"title":          title,
			"description":    description.String,
			"price":          price,
			"price_currency": priceCurrency,
			"year":           year,
			"mileage":        mileage,
			"is_new":         isNew,
			"location":       location,
			"published_at":   publishedAt,
			"scraped_at":     scrapedAt,
			"brand":          brandName,
			"model":          modelName,
		}

		if include["trim"] {
			listing["trim"] = gin.H{
				"id":                trimID,
				"name":              trimName,
				"motor_size":        motorSize,
				"fuel_type":         fuelType,
				"transmission_type": transType,
			}
		}
		if include["seller"] {
			listing["seller"] = gin.H{
				"id":   sellerID,
				"name": sellerName,
				"type": sellerType,
			}
		}
		if include["source"] {
			listing["source"] = gin.H{
				"id":       sourceID,
				"name":     sourceName,
				"base_url": sourceBaseURL,
			}
		}
		if include["images"] {
			listing["images"] = fetchListingImages(id)
		}
		if include["priceHistory"] {
			listing["price_history"] = fetchListingPriceHistory(id)
		}

		listings = append(listings, listing)
	}

	var totalCount int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", fromClause, where)
	if err := DB.QueryRow(countQuery, args...).Scan(&totalCount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count listings"})
		return
	}

	totalPages := (totalCount + pageSize - 1) / pageSize
	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"pagination": gin.H{
			"current_page": page,
			"total_pages":  totalPages,
			"total_items":  totalCount,
			"page_size":    pageSize,
			"has_next":     page < totalPages,
			"has_prev":     page > 1,
		},
	})
}

func fetchListingImages(listingID int64) []gin.H {
	images := []gin.H{}
	rows, err := DB.Query(
		`SELECT id, url, created_at FROM images WHERE listing_id = $1 ORDER BY id`,
		listingID,
	)
	if err != nil {
		fmt.Printf("images query error for listing %d: %v\n", listingID, err)
		return images
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var url string
		var createdAt time.Time
		if err := rows.Scan(&id, &url, &createdAt); err != nil {
			continue
		}
		images = append(images, gin.H{"id": id, "url": url, "created_at": createdAt})
	}
	return images
}

func fetchListingPriceHistory(listingID int64) []gin.H {
	history := []gin.H{}
	rows, err := DB.Query(
		`SELECT id, price, price_currency, recorded_at
		 FROM price_history WHERE listing_id = $1 ORDER BY recorded_at ASC, id ASC`,
		listingID,
	)
	if err != nil {
		fmt.Printf("price history query error for listing %d: %v\n", listingID, err)
		return history
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var price float64
		var currency string
		var recordedAt time.Time
		if err := rows.Scan(&id, &price, &currency, &recordedAt); err != nil {
			continue
		}
		history = append(history, gin.H{
			"id":             id,
			"price":          price,
			"price_currency": currency,
			"recorded_at":    recordedAt,
		})
	}
	return history
}

// GetCarListing returns one listing for the detail view, with its trim,
// seller, source and images embedded.
func GetCarListing(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	query := `
		SELECT cl.id, cl.url, cl.title, cl.description, cl.price, cl.price_currency,
		       cl.year, cl.mileage, cl.exterior_color, cl.interior_color, cl.is_new,
		       cl.location, cl.published_at, cl.scraped_at,
		       t.id, t.name, t.motor_size, t.fuel_type, t.transmission_type,
		       b.name, m.name,
		       se.id, se.name, se.type,
		       so.id, so.name, so.base_url
		FROM car_listings cl
		JOIN trims t ON cl.trim_id = t.id
		JOIN versions v ON t.version_id = v.id
		JOIN car_models m ON v.model_id = m.id
		JOIN brands b ON m.brand_id = b.id
		JOIN sellers se ON cl.seller_id = se.id
		JOIN sources so ON cl.source_id = so.id
		WHERE cl.id = $1`

	var id int64
	var url, title, priceCurrency string
	var description sql.NullString
	var exteriorColor, interiorColor sql.NullString
	var price, mileage, motorSize float64
	var year int
	var isNew bool
	var location string
	var publishedAt, scrapedAt time.Time
	var trimID, sellerID, sourceID uuid.UUID
	var trimName, fuelType, transType string
	var brandName, modelName string
	var sellerName, sellerType string
	var sourceName, sourceBaseURL string
	err = DB.QueryRow(query, listingID).Scan(
		&id, &url, &title, &description, &price, &priceCurrency,
		&year, &mileage, &exteriorColor, &interiorColor, &isNew,
		&location, &publishedAt, &scrapedAt,
		&trimID, &trimName, &motorSize, &fuelType, &transType,
		&brandName, &modelName,
		&sellerID, &sellerName, &sellerType,
		&sourceID, &sourceName, &sourceBaseURL,
	)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	if err != nil {
		fmt.Printf("listing detail query error: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             id,
		"url":            url,
		"title":          title,
		"description":    description.String,
		"price":          price,
		"price_currency": priceCurrency,
		"year":           year,
		"mileage":        mileage,
		"exterior_color": exteriorColor.String,
		"interior_color": interiorColor.String,
		"is_new":         isNew,
		"location":       location,
		"published_at":   publishedAt,
		"scraped_at":     scrapedAt,
		"brand":          brandName,
		"model":          modelName,
		"trim": gin.H{
			"id":                trimID,
			"name":              trimName,
			"motor_size":        motorSize,
			"fuel_type":         fuelType,
			"transmission_type": transType,
		},
		"seller": gin.H{"id": sellerID, "name": sellerName, "type": sellerType},
		"source": gin.H{"id": sourceID, "name": sourceName, "base_url": sourceBaseURL},
		"images": fetchListingImages(id),
	})
}

// GetListingPriceHistory feeds the price chart on the detail view.
func GetListingPriceHistory(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	var exists bool
	err = DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM car_listings WHERE id = $1)`, listingID).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch price history"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing_id":    listingID,
		"price_history": fetchListingPriceHistory(listingID),
	})
}
