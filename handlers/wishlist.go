package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Carplace-code/carplace-sub001/database"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetWishlists returns the current user's wishlists with their watched
// versions expanded (brand, model, year, live listing count).
func GetWishlists(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := database.Database.Query(
		`SELECT id, name, created_at FROM wishlists WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		fmt.Printf("wishlists query error: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlists"})
		return
	}
	defer rows.Close()

	var wishlists []gin.H
	for rows.Next() {
		var id uuid.UUID
		var name string
		var createdAt time.Time
		if err := rows.Scan(&id, &name, &createdAt); err != nil {
			continue
		}

		itemsQuery := `
			SELECT wi.id, wi.version_id, wi.created_at,
			       v.year, m.name, b.name,
			       COUNT(cl.id) AS listing_count
			FROM wishlist_items wi
			JOIN versions v ON wi.version_id = v.id
			JOIN car_models m ON v.model_id = m.id
			JOIN brands b ON m.brand_id = b.id
			LEFT JOIN trims t ON t.version_id = v.id
			LEFT JOIN car_listings cl ON cl.trim_id = t.id
			WHERE wi.wishlist_id = $1
			GROUP BY wi.id, wi.version_id, wi.created_at, v.year, m.name, b.name
			ORDER BY wi.created_at DESC`

		itemRows, err := database.Database.Query(itemsQuery, id)
		items := []gin.H{}
		if err != nil {
			fmt.Printf("wishlist items query error for %s: %v\n", id, err)
		} else {
			for itemRows.Next() {
				var itemID, versionID uuid.UUID
				var itemCreatedAt time.Time
				var year, listingCount int
				var modelName, brandName string
				if err := itemRows.Scan(&itemID, &versionID, &itemCreatedAt,
					&year, &modelName, &brandName, &listingCount); err != nil {
					continue
				}
				items = append(items, gin.H{
					"id":            itemID,
					"version_id":    versionID,
					"created_at":    itemCreatedAt,
					"year":          year,
					"model":         modelName,
					"brand":         brandName,
					"listing_count": listingCount,
				})
			}
			itemRows.Close()
		}

		wishlists = append(wishlists, gin.H{
			"id":         id,
			"name":       name,
			"created_at": createdAt,
			"items":      items,
		})
	}

	c.JSON(http.StatusOK, gin.H{"wishlists": wishlists})
}

// CreateWishlist creates a new wishlist for the current user
func CreateWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	wishlistID := uuid.New()
	_, err := database.Database.Exec(
		`INSERT INTO wishlists (id, user_id, name) VALUES ($1, $2, $3)`,
		wishlistID, userID, req.Name,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wishlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":   wishlistID,
		"name": req.Name,
	})
}

// DeleteWishlist removes one of the current user's wishlists
func DeleteWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	wishlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wishlist ID"})
		return
	}

	result, err := database.Database.Exec(
		`DELETE FROM wishlists WHERE id = $1 AND user_id = $2`,
		wishlistID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete wishlist"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check deletion"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Wishlist deleted"})
}

// AddWishlistItem adds a version to one of the current user's wishlists
func AddWishlistItem(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	wishlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wishlist ID"})
		return
	}

	var req struct {
		VersionID string `json:"version_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	versionID, err := uuid.Parse(req.VersionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid version ID"})
		return
	}

	// The wishlist must belong to the caller
	var owned bool
	err = database.Database.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM wishlists WHERE id = $1 AND user_id = $2)`,
		wishlistID, userID,
	).Scan(&owned)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check wishlist"})
		return
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist not found"})
		return
	}

	var versionExists bool
	err = database.Database.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM versions WHERE id = $1)`, versionID,
	).Scan(&versionExists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate version"})
		return
	}
	if !versionExists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
		return
	}

	var alreadyExists bool
	err = database.Database.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM wishlist_items WHERE wishlist_id = $1 AND version_id = $2)`,
		wishlistID, versionID,
	).Scan(&alreadyExists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check wishlist"})
		return
	}
	if alreadyExists {
		c.JSON(http.StatusConflict, gin.H{"error": "Version already in wishlist"})
		return
	}

	itemID := uuid.New()
	_, err = database.Database.Exec(
		`INSERT INTO wishlist_items (id, wishlist_id, version_id) VALUES ($1, $2, $3)`,
		itemID, wishlistID, versionID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to wishlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          "Version added to wishlist",
		"wishlist_item_id": itemID,
	})
}

// RemoveWishlistItem removes an item from one of the current user's wishlists
func RemoveWishlistItem(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	wishlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wishlist ID"})
		return
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	result, err := database.Database.Exec(
		`DELETE FROM wishlist_items wi
		 USING wishlists w
		 WHERE wi.id = $1 AND wi.wishlist_id = $2
		   AND w.id = wi.wishlist_id AND w.user_id = $3`,
		itemID, wishlistID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove from wishlist"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check removal"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found in wishlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Version removed from wishlist"})
}
