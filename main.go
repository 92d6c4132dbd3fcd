package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"penpal-exchange-system/handlers"
	"penpal-exchange-system/middleware"
	"penpal-exchange-system/models"
	"penpal-exchange-system/services"
	"penpal-exchange-system/utils"
	"penpal-exchange-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // letter photos
	})

	// Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitLetterStore(); err != nil {
		log.Fatal("failed to initialize letter photo store:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.PenpalProfile{},
		&models.PenpalApplication{},
		&models.PenpalMatch{},
		&models.ParentAddress{},
		&models.LetterMission{},
		&models.LetterProof{},
		&models.UserPenpalReputation{},
		&models.PenaltyRecord{},
		&models.PenpalCancelRequest{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	notifier := services.NewNotificationService(db)
	reputationService := services.NewReputationService(db)
	profileService := services.NewProfileService(db)
	matchService := services.NewMatchService(db)
	letterService := services.NewLetterService(db, reputationService)
	cancellationService := services.NewCancellationService(db, reputationService)
	escalationService := services.NewEscalationService(db, notifier, reputationService)

	pushServiceURL := os.Getenv("PUSH_SERVICE_URL")
	if pushServiceURL == "" {
		log.Fatal("PUSH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PENPAL_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PENPAL_SERVICE_TOKEN environment variable not set")
	}

	dispatchWorker := workers.NewNotificationDispatchWorker(db, pushServiceURL, "/api/v1/push", serviceToken)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	dispatchWorker.Start(ctx)

	escalationService.StartSweepScheduler()

	handlers.SetupPenpalRoutes(app, profileService, reputationService, notifier)
	handlers.SetupMatchRoutes(app, matchService, cancellationService, notifier)
	handlers.SetupLetterRoutes(app, letterService, notifier)
	handlers.SetupAdminRoutes(app, matchService, letterService, cancellationService, escalationService, reputationService, notifier)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Server running on http://localhost:5300")
	log.Println("Notification dispatch worker running")
	log.Println("Escalation sweep scheduled daily")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
