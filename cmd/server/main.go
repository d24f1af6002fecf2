package main

import (
	"fmt"
	"log"
	"os"

	"steeple/internal/database"
	"steeple/internal/handlers"
	"steeple/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env in development; in production the platform supplies the environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	// Initialize database
	if err := database.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	db := database.GetDB()

	// Profile photos are optional; without Cloudinary config digests just omit them
	images, err := services.NewImageService()
	if err != nil {
		log.Printf("Image service disabled: %v", err)
		images = nil
	}

	resolvers, err := services.SetupEntityResolvers(db, images)
	if err != nil {
		log.Fatal("Failed to set up entity resolvers:", err)
	}

	engine := services.NewDispatchEngine(
		services.NewGormReminderStore(db),
		services.NewWorkflowService(db),
		services.NewEmailService(),
		resolvers,
	)

	worker := services.NewReminderWorker(engine, services.RunConfigFromEnv())
	worker.Start()
	handlers.RegisterDispatchWorker(worker)

	// Initialize Gin router
	router := gin.Default()

	// Configure trusted proxies
	router.SetTrustedProxies([]string{"127.0.0.1"})

	// Allow the admin dashboard origin when configured
	corsConfig := cors.DefaultConfig()
	if origin := os.Getenv("CORS_ALLOWED_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = []string{origin}
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Admin-Token")
	router.Use(cors.New(corsConfig))

	// Basic routes
	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)

	// Admin routes (shared secret required)
	admin := router.Group("/admin")
	admin.Use(handlers.AdminTokenMiddleware())
	{
		admin.POST("/dispatch/run", handlers.TriggerDispatchRun)
		admin.GET("/dispatch/status", handlers.GetDispatchStatus)
	}

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("Server starting on port %s...\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
