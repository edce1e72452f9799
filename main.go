package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"futeba-gamification-system/handlers"
	"futeba-gamification-system/middleware"
	"futeba-gamification-system/models"
	"futeba-gamification-system/services"
	"futeba-gamification-system/utils"
	"futeba-gamification-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — JSON payloads only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Game{},
		&models.GameConfirmation{},
		&models.GameTeam{},
		&models.GamificationSettings{},
		&models.UserProgress{},
		&models.XpTransaction{},
		&models.UserBadge{},
		&models.RateLimitBucket{},
		&models.DeadLetterEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Dead letter archiving to R2 is optional; nil archiver disables it
	archiver, err := utils.NewDeadLetterArchiver()
	if err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	if archiver == nil {
		log.Println("⚠️  R2 not configured, dead letter archiving disabled")
	}

	xpStore := services.NewGormXpStore(db)
	bucketStore := services.NewGormBucketStore(db)
	deadLetterSink := services.NewGormDeadLetterSink(db)

	processor := services.NewXpProcessor(xpStore)
	limiter := services.NewRateLimiter(bucketStore)
	progressionService := services.NewProgressionService(db)
	badgeService := services.NewBadgeService(db)
	finisher := services.NewGameFinisher(db, processor, progressionService, badgeService, deadLetterSink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	finishWorker := workers.NewGameFinishWorker(db, finisher)
	finishWorker.Start(ctx)

	maintenance := services.NewMaintenanceScheduler(db, limiter)
	maintenance.Start()
	defer maintenance.Stop()

	// Health probe is the only route limited by IP instead of user context
	app.Get("/health", middleware.WithRateLimitByIP(limiter, services.RateLimits["progression"]),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix for admin
	handlers.SetupXpRoutes(app, processor, finisher, limiter)
	handlers.SetupProgressionRoutes(app, progressionService, badgeService, limiter)
	handlers.SetupAdminRoutes(app, db, limiter, archiver)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Game Finish Worker running")
	log.Println("✅ Maintenance scheduler running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
