package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Carplace-code/carplace-sub001/config"
	"github.com/Carplace-code/carplace-sub001/services"

	"github.com/gin-gonic/gin"
)

// DeleteOldListings is the cron entrypoint for the retention sweep,
// invoked by an external scheduler. When CRON_SECRET is configured the
// caller must present it.
func DeleteOldListings(c *gin.Context) {
	if secret := config.AppConfig.CronSecret; secret != "" {
		if c.GetHeader("Authorization") != "Bearer "+secret && c.Query("secret") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
	}

	cutoff := time.Now().Add(-services.RetentionAge)
	count, ids, err := services.DeleteListingsOlderThan(cutoff)
	if err != nil {
		fmt.Printf("delete old listings error: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete old listings"})
		return
	}

	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{
		"deletedOldListings": gin.H{"count": count, "ids": ids},
		"status":             "ok",
	})
}
