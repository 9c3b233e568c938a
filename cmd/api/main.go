package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/tobi-ade/storefront-golang/internal/ai"
	"github.com/tobi-ade/storefront-golang/internal/database"
	"github.com/tobi-ade/storefront-golang/internal/email"
	"github.com/tobi-ade/storefront-golang/internal/handlers"
	"github.com/tobi-ade/storefront-golang/internal/paystack"
	"github.com/tobi-ade/storefront-golang/internal/push"
	"github.com/tobi-ade/storefront-golang/internal/routes"
)

func main() {
	// 1. --- Load Environment Variables ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from the environment")
	}

	// 2. --- Connect to the Database ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("FATAL: could not connect to the database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established")

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("FATAL: migrations failed: %v", err)
	}

	// 3. --- Build the Service Clients ---
	paystackClient := paystack.NewClient(os.Getenv("PAYSTACK_SECRET_KEY"))

	var pushClient *push.Client
	if serverKey := os.Getenv("FCM_SERVER_KEY"); serverKey != "" {
		pushClient = push.NewClient(serverKey)
	} else {
		log.Println("FCM_SERVER_KEY not set, push delivery disabled")
	}

	mailer := email.NewMailerFromEnv()
	if mailer == nil {
		log.Println("SMTP_HOST not set, email delivery disabled")
	}

	var aiService *ai.AIService
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		aiService, err = ai.NewAIService(apiKey)
		if err != nil {
			log.Printf("WARN: AI service unavailable, falling back to templates: %v", err)
		}
	}

	h := &handlers.Handlers{
		DB:       db,
		Paystack: paystackClient,
		Push:     pushClient,
		Mailer:   mailer,
		AI:       aiService,
	}

	// 4. --- Start the Outbox Worker ---
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.ProcessPendingJobs()
		}
	}()
	log.Println("Outbox worker started")

	// 5. --- Start the Server ---
	router := routes.SetupRouter(h, db)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: server failed to start: %v", err)
	}
}
