package main

import (
	"context"
	"log"

	"mipo/server/internal/config"
	"mipo/server/internal/database"
	"mipo/server/internal/handlers"
	"mipo/server/internal/routes"
	"mipo/server/internal/services"
	"mipo/server/internal/utils"
	"mipo/server/internal/verify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zapLogger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to database
	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	zapLogger.Info("Database connected")

	// Verification provider
	var verifier verify.Verifier
	switch cfg.SMSProvider {
	case "twilio":
		verifier = verify.NewTwilioVerifier(
			cfg.Twilio.AccountSID,
			cfg.Twilio.AuthToken,
			cfg.Twilio.VerifyServiceSID,
			zapLogger,
		)
	default:
		verifier = verify.NewStoreVerifier(verify.NewPgCodeStore(pool), zapLogger)
	}
	zapLogger.Info("Verification provider ready", zap.String("provider", cfg.SMSProvider))

	// Services
	jwtManager := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	groupService := services.NewGroupService(pool, zapLogger)
	authService := services.NewAuthService(pool, verifier, groupService, zapLogger)
	presenceService := services.NewPresenceService(pool, groupService, zapLogger)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Mi Po API v1.0",
	})

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowCredentials: true,
	}))

	// Setup routes
	routes.SetupRoutes(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, jwtManager, cfg.IsProduction()),
		Group:    handlers.NewGroupHandler(groupService),
		Presence: handlers.NewPresenceHandler(presenceService),
		JWT:      jwtManager,
	})

	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zapLogger.Fatal("Server stopped", zap.Error(err))
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
