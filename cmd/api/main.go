package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/tripmates/tripmates-backend/internal/database"
	"github.com/tripmates/tripmates-backend/internal/handlers"
	"github.com/tripmates/tripmates-backend/internal/middleware"
	"github.com/tripmates/tripmates-backend/internal/services"
	"github.com/tripmates/tripmates-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Printf("Redis initialization warning: %v", err)
	}

	st := store.New(db)

	hub := services.NewHub()
	go hub.Run()

	notifications := services.NewNotificationService(st, hub)
	trips := services.NewTripService(st, notifications)
	requests := services.NewRequestService(st, notifications)
	conversations := services.NewConversationService(st, notifications)
	services.NewChatGateway(hub, conversations)

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(st))
			auth.POST("/login", handlers.Login(st))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			tripRoutes := protected.Group("/trips")
			{
				tripRoutes.POST("", handlers.CreateTrip(trips))
				tripRoutes.GET("", handlers.GetTrips(trips))
				tripRoutes.GET("/my", handlers.GetMyTrips(trips))
				tripRoutes.GET("/:id", handlers.GetTrip(trips))
				tripRoutes.PATCH("/:id", handlers.UpdateTrip(trips))
				tripRoutes.DELETE("/:id", handlers.DeleteTrip(trips))
				tripRoutes.POST("/:id/cancel", handlers.CancelTrip(trips))
				tripRoutes.POST("/:id/requests", handlers.CreateRequest(requests))
				tripRoutes.GET("/:id/requests", handlers.GetRequestsForTrip(requests))
				tripRoutes.GET("/:id/my-request", handlers.GetMyRequestForTrip(requests))
			}

			requestRoutes := protected.Group("/requests")
			{
				requestRoutes.GET("/sent", handlers.GetSentRequests(requests))
				requestRoutes.GET("/received", handlers.GetReceivedRequests(requests))
				requestRoutes.GET("/conversations", handlers.GetConversations(conversations))
				requestRoutes.PATCH("/:id/respond", handlers.RespondToRequest(requests))
				requestRoutes.GET("/:id/messages", handlers.GetMessages(conversations))
			}

			userRoutes := protected.Group("/users")
			{
				userRoutes.POST("/:id/block", handlers.BlockUser(st))
				userRoutes.DELETE("/:id/block", handlers.UnblockUser(st))
			}

			notificationRoutes := protected.Group("/notifications")
			{
				notificationRoutes.GET("", handlers.GetNotifications(notifications))
				notificationRoutes.PATCH("/:id/read", handlers.MarkNotificationRead(notifications))
				notificationRoutes.PATCH("/read-all", handlers.MarkAllNotificationsRead(notifications))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server listening on port %s", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	hub.Stop()
}
