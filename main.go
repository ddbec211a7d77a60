package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"juspost/database"
	"juspost/handlers"
	"juspost/routes"
	"juspost/store"
	"juspost/websocket"
)

func main() {
	log.Println("Starting JusPost backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	// Connect to MongoDB with retry
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.ConnectMongo(); err != nil {
			dbErr = err
			log.Printf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal("Failed to connect to MongoDB: ", dbErr)
	}
	defer database.DisconnectMongo()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer bootCancel()

	if err := database.EnsureIndexes(bootCtx); err != nil {
		log.Fatal("Failed to create indexes: ", err)
	}

	adminUsername := os.Getenv("ADMIN_USERNAME")
	if adminUsername == "" {
		adminUsername = "admin"
	}
	adminNickname := os.Getenv("ADMIN_NICKNAME")
	if adminNickname == "" {
		adminNickname = "Admin"
	}
	if err := database.SeedAdmin(bootCtx, adminUsername, adminNickname); err != nil {
		log.Fatal("Failed to seed admin user: ", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	wsManager := websocket.NewManager()
	go wsManager.Start()

	userStore := store.NewUserStore(database.Users)
	postStore := store.NewPostStore(database.Posts)
	privateStore := store.NewPrivatePostStore(database.PrivatePosts)

	postHandler := handlers.NewPostHandler(postStore, userStore, wsManager)
	userHandler := handlers.NewUserHandler(userStore, postStore, wsManager, adminUsername)
	privateHandler := handlers.NewPrivatePostHandler(privateStore, userStore)

	router := routes.SetupRouter(postHandler, userHandler, privateHandler)

	router.GET("/", func(c *gin.Context) {
		c.String(200, "JusPost Backend API is running...")
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.Handler(wsManager)(c.Writer, c.Request)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown: ", err)
	}

	log.Println("Server stopped gracefully")
}
