package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slacksum/internal/config"
	"slacksum/internal/database"
	"slacksum/internal/handlers"
	"slacksum/internal/jobs"
	"slacksum/internal/logging"
	"slacksum/internal/middleware"
	"slacksum/internal/services"
	"slacksum/internal/session"
	"slacksum/internal/slack"
	"slacksum/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Slacksum Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// Initialize MongoDB
	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	log.Println("🔗 Connecting to MongoDB...")
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())
	log.Println("✅ MongoDB connected successfully")

	if err := db.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}

	// Initialize Redis (optional - cross-instance cycle locking)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (cross-instance locking disabled)", err)
			redisService = nil
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - cross-instance locking disabled")
	}

	// Initialize Prometheus metrics
	metrics := services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Initialize core services
	sessionStore := services.NewSessionStore(db)
	sessions := session.NewManager(sessionStore)
	userService := services.NewUserService(db)

	slackClient := slack.NewClient()
	channelService := services.NewChannelService(slackClient, userService)

	if cfg.SlackClientID == "" || cfg.SlackClientSecret == "" {
		log.Println("⚠️ SLACK_CLIENT_ID / SLACK_CLIENT_SECRET not set - OAuth login will fail")
	}
	oauthClient := slack.NewOAuthClient(slack.OAuthConfig{
		ClientID:     cfg.SlackClientID,
		ClientSecret: cfg.SlackClientSecret,
		RedirectURL:  cfg.AppURL + "/api/auth/slack/callback",
	})

	agentClient := services.NewAgentClient(cfg.AgentAPIURL, cfg.AgentAPIKey)
	if agentClient.Enabled() {
		log.Printf("✅ Summarization agent configured: %s", cfg.AgentAPIURL)
	} else {
		log.Println("⚠️ AGENT_API_URL not set - using local fallback summaries")
	}

	pushService := services.NewPushService(db, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, metrics)
	if pushService.Enabled() {
		log.Println("✅ Web Push configured (VAPID)")
	} else {
		log.Println("⚠️ VAPID keys not set - push notifications disabled")
	}

	orchestrator := services.NewOrchestrator(sessions, sessionStore, userService, slackClient, agentClient, pushService, redisService, metrics)
	log.Println("✅ Summarization orchestrator initialized")

	// Quick actions with hot reload
	quickActions := services.NewQuickActionsService(cfg.QuickActionsFile)
	if err := quickActions.Watch(); err != nil {
		log.Printf("⚠️ Quick actions hot reload disabled: %v", err)
	}
	defer quickActions.Close()

	// Reminder due sweep
	reminderSweep, err := jobs.NewReminderSweep(db, pushService, cfg.ReminderSweepCron)
	if err != nil {
		log.Fatalf("❌ Failed to initialize reminder sweep: %v", err)
	}
	if err := reminderSweep.Start(); err != nil {
		log.Fatalf("❌ Failed to start reminder sweep: %v", err)
	}

	// Initialize session authentication
	var sessionAuth *auth.SessionAuth
	if cfg.JWTSecret == "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "production" {
			log.Fatal("❌ CRITICAL SECURITY ERROR: JWT_SECRET is required in production. Generate with: openssl rand -hex 64")
		}
		log.Println("⚠️  JWT_SECRET not set - authentication disabled (development mode)")
	} else {
		sessionAuth, err = auth.NewSessionAuth(cfg.JWTSecret, cfg.SessionExpiry)
		if err != nil {
			log.Fatalf("❌ Failed to initialize session authentication: %v", err)
		}
		log.Printf("✅ Session authentication initialized (expiry: %v)", cfg.SessionExpiry)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Slacksum v1.0",
		ReadTimeout:  180 * time.Second, // agent summarization can be slow
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  180 * time.Second,
		BodyLimit:    5 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("slacksum")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min, Summarize=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthenticatedMax,
		rateLimitConfig.SummarizeMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	allowCredentials := allowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-API-Key",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	// Global API rate limiter - first line of DDoS defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(oauthClient, userService, channelService, sessionAuth, cfg.AppURL, cfg.SessionExpiry)
	channelHandler := handlers.NewChannelHandler(channelService)
	conversationHandler := handlers.NewConversationHandler(sessions)
	summarizeHandler := handlers.NewSummarizeHandler(orchestrator)
	reminderHandler := handlers.NewReminderHandler(sessions, metrics)
	pushHandler := handlers.NewPushHandler(pushService, cfg.VAPIDPublicKey, cfg.AgentAPIKey)
	stateHandler := handlers.NewStateHandler(sessions)
	quickActionsHandler := handlers.NewQuickActionsHandler(quickActions)

	requireAuth := middleware.SessionAuthMiddleware(sessionAuth)
	authLimiter := middleware.AuthenticatedRateLimiter(rateLimitConfig)
	summarizeLimiter := middleware.SummarizeRateLimiter(rateLimitConfig)
	oauthLimiter := middleware.OAuthRateLimiter(rateLimitConfig)

	// Health check
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	{
		// OAuth flow (public, rate limited per IP)
		api.Get("/auth/slack", oauthLimiter, authHandler.Start)
		api.Get("/auth/slack/callback", oauthLimiter, authHandler.Callback)
		api.Post("/auth/logout", authHandler.Logout)
		api.Get("/auth/me", requireAuth, authHandler.Me)

		// Channel directory
		api.Get("/channels", requireAuth, authLimiter, channelHandler.List)

		// Conversation logs
		api.Post("/channels/:id/open", requireAuth, authLimiter, conversationHandler.Open)
		api.Get("/channels/:id/turns", requireAuth, authLimiter, conversationHandler.Turns)
		api.Post("/channels/:id/turns", requireAuth, authLimiter, conversationHandler.AppendUserTurn)
		api.Delete("/channels/:id/turns", requireAuth, authLimiter, conversationHandler.Clear)

		// Fetch-and-summarize cycles
		api.Post("/channels/:id/summarize", requireAuth, summarizeLimiter, summarizeHandler.Run)
		api.Get("/channels/:id/summarize/status", requireAuth, summarizeHandler.Status)

		// Reminder ledger
		api.Get("/reminders", requireAuth, authLimiter, reminderHandler.List)
		api.Post("/reminders", requireAuth, authLimiter, reminderHandler.Create)
		api.Post("/reminders/read-all", requireAuth, authLimiter, reminderHandler.MarkAllRead)
		api.Patch("/reminders/:id", requireAuth, authLimiter, reminderHandler.Update)
		api.Delete("/reminders/:id", requireAuth, authLimiter, reminderHandler.Delete)
		api.Post("/reminders/:id/read", requireAuth, authLimiter, reminderHandler.MarkRead)
		api.Post("/reminders/:id/complete", requireAuth, authLimiter, reminderHandler.MarkComplete)

		// Push notifications
		api.Get("/push/public-key", pushHandler.PublicKey)
		api.Post("/push/subscribe", requireAuth, authLimiter, pushHandler.Subscribe)
		api.Post("/push/unsubscribe", requireAuth, authLimiter, pushHandler.Unsubscribe)
		api.Get("/push/status", requireAuth, pushHandler.Status)
		api.Post("/push/send", pushHandler.Send) // agent-facing, API-key guarded

		// Application state
		api.Get("/state", requireAuth, stateHandler.Get)
		api.Put("/state/channel", requireAuth, stateHandler.SelectChannel)
		api.Put("/state/device", requireAuth, stateHandler.SetDevice)

		// Quick actions (public read)
		api.Get("/quick-actions", quickActionsHandler.List)
	}

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("⏰ Reminder sweep: %s (UTC)", cfg.ReminderSweepCron)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := reminderSweep.Stop(); err != nil {
			log.Printf("⚠️ Error stopping reminder sweep: %v", err)
		}

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
