package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"pulseboard/internal/config"
	"pulseboard/internal/database"
	"pulseboard/internal/handlers"
	"pulseboard/internal/jobs"
	"pulseboard/internal/logging"
	"pulseboard/internal/middleware"
	"pulseboard/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Pulseboard Assistant Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// Initialize MySQL (optional - without it the assistant answers from
	// the knowledge-base snapshot only)
	var db *database.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("✅ MySQL connected successfully")
	} else {
		log.Println("⚠️ DATABASE_URL not set - SQL analytics disabled, knowledge base only")
	}

	// Initialize Redis (optional - for shared conversation memory and the
	// dataset refresh lock)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		var err error
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (in-memory sessions only)", err)
			redisService = nil
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - in-memory sessions only")
	}
	if redisService != nil {
		defer redisService.Close()
	}

	// Prometheus metrics registry
	metrics := services.InitMetrics()

	// Conversation memory store
	var store services.ConversationStore
	if redisService != nil {
		store = services.NewRedisStore(redisService.Client(), cfg.MemoryMaxInteractions, cfg.MemoryTTL)
		log.Println("✅ Conversation store: Redis")
	} else {
		store = services.NewMemoryStore(cfg.MemoryMaxInteractions, cfg.MemoryTTL)
		log.Println("✅ Conversation store: in-memory")
	}

	// Dataset service with file watching and periodic refresh
	datasetService := services.NewDatasetService(cfg.KnowledgeBasePath, cfg.DatasetReloadTTL)
	if _, err := datasetService.Load(); err != nil {
		log.Printf("⚠️ Knowledge base not loadable yet: %v", err)
	} else {
		log.Println("✅ Knowledge base loaded")
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := datasetService.Watch(watchCtx); err != nil {
			log.Printf("⚠️ Dataset watcher unavailable: %v", err)
		}
	}()

	var redisClient *redis.Client
	if redisService != nil {
		redisClient = redisService.Client()
	}
	refresher, err := jobs.NewDatasetRefresher(datasetService, redisClient, cfg.DatasetReloadTTL)
	if err != nil {
		log.Fatalf("❌ Failed to create dataset refresher: %v", err)
	}
	if err := refresher.Start(); err != nil {
		log.Fatalf("❌ Failed to start dataset refresher: %v", err)
	}

	// AI client and answer pipeline
	aiClient := services.NewAIClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	if !aiClient.Configured() {
		log.Println("⚠️ AI credentials not set - answers degrade to raw data dumps")
	}

	summarizer := services.NewSummarizerService(aiClient)
	helpdesk := services.NewHelpdeskService(cfg.HelpdeskBaseURL, summarizer)

	var executor *services.ExecutorService
	if db != nil {
		planner := services.NewPlannerService(aiClient, db)
		executor = services.NewExecutorService(db, planner, metrics)
	}

	assistant := services.NewAssistantService(store, datasetService, executor, summarizer, helpdesk, aiClient, metrics)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Pulseboard Assistant v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // queries are short text
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("pulseboard")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Answer=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AnswerMax,
		rateLimitConfig.WebSocketMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Session-ID",
	}))

	// Global API rate limiter - first line of DDoS defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, datasetService)
	assistantHandler := handlers.NewAssistantHandler(assistant)
	wsHandler := handlers.NewWebSocketHandler(assistant)

	// Routes
	app.Get("/health", healthHandler.Handle)

	answerLimiter := middleware.AnswerRateLimiter(rateLimitConfig)
	api := app.Group("/api/assistant")
	api.Post("/answer", answerLimiter, assistantHandler.Answer)
	api.Post("/analytics", answerLimiter, assistantHandler.Analytics)
	api.Post("/knowledge-base", answerLimiter, assistantHandler.KnowledgeBase)
	api.Post("/helpdesk", answerLimiter, assistantHandler.Helpdesk)
	api.Delete("/sessions/:id", assistantHandler.ClearSession)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Use("/ws/assistant", middleware.WebSocketRateLimiter(rateLimitConfig))
	app.Get("/ws/assistant", websocket.New(wsHandler.Handle, websocket.Config{
		Origins: strings.Split(allowedOrigins, ","),
	}))

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := refresher.Stop(); err != nil {
			log.Printf("⚠️ Error stopping dataset refresher: %v", err)
		}
		stopWatch()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
