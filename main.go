package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"event-quest-system/handlers"
	"event-quest-system/middleware"
	"event-quest-system/models"
	"event-quest-system/services"
	"event-quest-system/utils"
	"event-quest-system/workers"

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
		BodyLimit: 32 * 1024 * 1024, // 32MB, evidence photos only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed. The one exception is the
	// SSE stream: EventSource cannot set the Authorization header, so that
	// route authenticates with the query token in SSEAuthMiddleware.
	gatewayAuth := middleware.GatewayAuthMiddleware()
	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/events/stream" {
			return c.Next()
		}
		return gatewayAuth(c)
	})

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Team-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitEvidenceStore(); err != nil {
		log.Printf("⚠️  R2 evidence store unavailable (%v), falling back to local disk", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Participant{},
		&models.Team{},
		&models.Mission{},
		&models.Submission{},
		&models.RaceCounter{},
		&models.Auction{},
		&models.Bid{},
		&models.Challenge{},
		&models.ChallengeResult{},
		&models.EngineEvent{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledger := services.NewLedgerStore(db)
	feedService := services.NewFeedService(db)
	missionService := services.NewMissionService(db, ledger, feedService)
	auctionService := services.NewAuctionService(db, ledger, feedService)
	raceService := services.NewRaceService(db, ledger, feedService)
	challengeService := services.NewChallengeService(db, ledger, feedService)
	leaderboardService := services.NewLeaderboardService(db)
	progressionService := services.NewProgressionService(db)
	adminService := services.NewAdminService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.RunReconciler(ctx, db, 5*time.Minute)

	leaderboardService.StartSnapshotScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupMissionRoutes(app, missionService, adminService)
	handlers.SetupAuctionRoutes(app, auctionService, adminService)
	handlers.SetupRaceRoutes(app, raceService)
	handlers.SetupChallengeRoutes(app, challengeService, adminService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService, progressionService, feedService, adminService)

	app.Static("/evidence_uploads", "./evidence_uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Reconcile worker running (every 5m)")
	log.Println("✅ Leaderboard snapshot scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally (query-token auth on /events/stream)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
