package main

import (
	"context"
	"log"
	"net/http"

	"github.com/Carplace-code/carplace-sub001/config"
	"github.com/Carplace-code/carplace-sub001/database"
	"github.com/Carplace-code/carplace-sub001/handlers"
	"github.com/Carplace-code/carplace-sub001/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Connect to database
	db, err := database.Connect(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Initialize tables
	if err := db.InitializeTables(); err != nil {
		log.Fatal("Failed to initialize tables:", err)
	}

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.Default()

	// Add CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure this properly for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Carplace server is running",
		})
	})

	// Initialize handlers
	handlers.InitializeHandlers(db)

	// API routes
	api := router.Group("/api/v1")
	{
		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.RegisterUser)
			auth.POST("/login", handlers.LoginUser)
		}

		// Listing ingestion and browse routes; /cars is the legacy alias
		// some scrapers still post to.
		for _, prefix := range []string{"/car_listings", "/cars"} {
			listings := api.Group(prefix)
			{
				listings.POST("/", handlers.CreateCarListing)
				listings.GET("/", handlers.GetCarListings)
				listings.GET("/:id", handlers.GetCarListing)
				listings.GET("/:id/price_history", handlers.GetListingPriceHistory)
				listings.DELETE("/delete_duplicates", handlers.DeleteDuplicateListings)
				listings.POST("/fix", handlers.FixListings)
			}
		}

		// Catalog browse routes
		api.GET("/brands", handlers.GetBrands)
		api.GET("/brands/:id/models", handlers.GetBrandModels)
		api.GET("/models/:id/versions", handlers.GetModelVersions)

		// Cron routes, invoked by an external scheduler
		cron := api.Group("/cron")
		{
			cron.GET("/del_old_listings", handlers.DeleteOldListings)
			cron.GET("/delete_old_listings", handlers.DeleteOldListings)
		}

		// Wishlist routes (protected)
		wishlists := api.Group("/wishlists")
		wishlists.Use(handlers.AuthMiddleware())
		{
			wishlists.GET("/", handlers.GetWishlists)
			wishlists.POST("/", handlers.CreateWishlist)
			wishlists.DELETE("/:id", handlers.DeleteWishlist)
			wishlists.POST("/:id/items", handlers.AddWishlistItem)
			wishlists.DELETE("/:id/items/:item_id", handlers.RemoveWishlistItem)
		}
	}

	// In-process retention sweep, in addition to the external cron route
	go services.NewRetentionSweeper().Run(context.Background())

	// Start server
	log.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	log.Fatal(http.ListenAndServe("0.0.0.0:"+config.AppConfig.ServerPort, c.Handler(router)))
}
