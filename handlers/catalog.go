package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetBrands lists all brands with their model and live listing counts.
func GetBrands(c *gin.Context) {
	query := `
		SELECT b.id, b.name, b.created_at,
		       COUNT(DISTINCT m.id) AS model_count,
		       COUNT(cl.id) AS listing_count
		FROM brands b
		LEFT JOIN car_models m ON m.brand_id = b.id
		LEFT JOIN versions v ON v.model_id = m.id
		LEFT JOIN trims t ON t.version_id = v.id
		LEFT JOIN car_listings cl ON cl.trim_id = t.id
		GROUP BY b.id, b.name, b.created_at
		ORDER BY b.name`

	rows, err := DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch brands"})
		return
	}
	defer rows.Close()

	var brands []gin.H
	for rows.Next() {
		var id uuid.UUID
		var name string
		var createdAt time.Time
		var modelCount, listingCount int
		if err := rows.Scan(&id, &name, &createdAt, &modelCount, &listingCount); err != nil {
			continue
		}
		brands = append(brands, gin.H{
			"id":            id,
			"name":          name,
			"created_at":    createdAt,
			"model_count":   modelCount,
			"listing_count": listingCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

// GetBrandModels lists the models of one brand.
func GetBrandModels(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid brand ID"})
		return
	}

	var exists bool
	if err := DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM brands WHERE id = $1)`, brandID).Scan(&exists); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch brand"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Brand not found"})
		return
	}

	query := `
		SELECT m.id, m.name, m.body_type, COUNT(v.id) AS version_count
		FROM car_models m
		LEFT JOIN versions v ON v.model_id = m.id
		WHERE m.brand_id = $1
		GROUP BY m.id, m.name, m.body_type
		ORDER BY m.name`

	rows, err := DB.Query(query, brandID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch models"})
		return
	}
	defer rows.Close()

	var carModels []gin.H
	for rows.Next() {
		var id uuid.UUID
		var name string
		var bodyType *string
		var versionCount int
		if err := rows.Scan(&id, &name, &bodyType, &versionCount); err != nil {
			continue
		}
		carModels = append(carModels, gin.H{
			"id":            id,
			"name":          name,
			"body_type":     bodyType,
			"version_count": versionCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"brand_id": brandID, "models": carModels})
}

// GetModelVersions lists the model-year versions of one model together
// with aggregate listing stats for the browse view.
func GetModelVersions(c *gin.Context) {
	modelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid model ID"})
		return
	}

	var exists bool
	if err := DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM car_models WHERE id = $1)`, modelID).Scan(&exists); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch model"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}

	query := `
		SELECT v.id, v.year,
		       COUNT(cl.id) AS listing_count,
		       COALESCE(MIN(cl.price), 0) AS min_price,
		       COALESCE(MAX(cl.price), 0) AS max_price
		FROM versions v
		LEFT JOIN trims t ON t.version_id = v.id
		LEFT JOIN car_listings cl ON cl.trim_id = t.id
		WHERE v.model_id = $1
		GROUP BY v.id, v.year
		ORDER BY v.year DESC`

	rows, err := DB.Query(query, modelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch versions"})
		return
	}
	defer rows.Close()

	var versions []gin.H
	for rows.Next() {
		var id uuid.UUID
		var year, listingCount int
		var minPrice, maxPrice float64
		if err := rows.Scan(&id, &year, &listingCount, &minPrice, &maxPrice); err != nil {
			continue
		}
		versions = append(versions, gin.H{
			"id":            id,
			"year":          year,
			"listing_count": listingCount,
			"min_price":     minPrice,
			"max_price":     maxPrice,
		})
	}

	c.JSON(http.StatusOK, gin.H{"model_id": modelID, "versions": versions})
}
