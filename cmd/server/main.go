package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"xmllibrary/internal/adapters/http/middleware"
	"xmllibrary/internal/adapters/http/routes"
	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/config"
	"xmllibrary/internal/pkg/password"

	"github.com/gofiber/fiber/v2"

	_ "xmllibrary/docs" // Swagger docs
)

// @title XML Library API
// @version 1.0
// @description Library catalogue, membership and circulation API backed by schema-validated XML documents.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if err := password.SetCost(cfg.BcryptCost); err != nil {
		log.Fatalf("❌ Invalid password hashing cost: %v", err)
	}

	// Load schemas and open the data directory
	storage, err := config.OpenStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open storage: %v", err)
	}
	defer storage.Close()

	// Seed staff accounts on first start
	seeder := config.NewSeeder(repositories.NewUserRepository(storage.Store), storage.Store)
	if err := seeder.Run(context.Background(), config.DefaultAccounts()); err != nil {
		log.Printf("⚠️ Warning: Failed to seed accounts: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "XML Library API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	cronService := routes.Setup(app, cfg, storage)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}
	defer cronService.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
