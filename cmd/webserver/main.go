package main

import (
	"log"
	"os"
	"time"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/cache"
	"clinic-qr-tracker/internal/database"
	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/handlers"
	"clinic-qr-tracker/internal/logger"
	"clinic-qr-tracker/internal/middleware"
	"clinic-qr-tracker/internal/ratelimit"
	"clinic-qr-tracker/internal/repository/mysql"
	"clinic-qr-tracker/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title Clinic QR Tracker API
// @version 1.0
// @description Subscription-gated visitor event tracking for clinic QR campaigns and diagnosis widgets

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default configuration")
	}

	if err := configs.LoadConfig(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zapLog, err := logger.New(configs.AppConfig.Environment)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLog.Sync()

	// Initialize database and cache
	dbManager := database.GetDBManager()
	cacheMgr := cache.GetCacheManager()

	repo := mysql.NewRepository(dbManager.WriteDB, dbManager.GetReadDB)

	// Rate-limit counters live in redis when available so limits hold across
	// instances; a single instance without redis gets process-local windows.
	var counters ratelimit.CounterStore = ratelimit.NewLocalStore()
	if cacheMgr.IsAvailable() {
		counters = cacheMgr
	}
	limiter := ratelimit.NewLimiter(counters, zapLog)

	// Geo enrichment providers
	ipResolver := geo.NewIPResolver(configs.AppConfig.GeoIPBaseURL, configs.AppConfig.GeoTimeout, zapLog)
	geocoder := geo.NewReverseGeocoder(configs.AppConfig.GeocodeBaseURL, configs.AppConfig.GeoTimeout, zapLog)

	// Services
	subscriptionService := services.NewSubscriptionService(repo, repo, cacheMgr, zapLog)
	eventService := services.NewEventService(repo, repo, repo, subscriptionService, ipResolver, geocoder, cacheMgr, zapLog)
	channelService := services.NewChannelService(repo, subscriptionService, eventService, zapLog)
	auditService := services.NewAuditService(repo, zapLog)
	authService := services.NewAuthService(repo, zapLog)

	// Handlers
	trackHandler := handlers.NewTrackHandler(eventService)
	redirectHandler := handlers.NewRedirectHandler(channelService)
	channelHandler := handlers.NewChannelHandler(channelService, auditService)
	authHandler := handlers.NewAuthHandler(authService)
	wsHandler := handlers.NewWebSocketHandler(zapLog)

	cacheMgr.OnEvent(wsHandler.Broadcast)
	go wsHandler.RunHub()

	// Setup Gin router
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ContentType())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	cfg := configs.AppConfig

	// Public short-code redirect
	router.GET("/c/:code", redirectHandler.Resolve)

	// Anonymous visitor tracking, each route with its own admission limit
	track := router.Group("/api/track")
	track.POST("/access", middleware.RateLimit(limiter, "track_access", cfg.AccessLimit), trackHandler.RecordAccess)
	track.POST("/cta", middleware.RateLimit(limiter, "track_cta", cfg.CTAClickLimit), trackHandler.RecordCTAClick)
	track.POST("/complete", trackHandler.CompleteDiagnosis)
	track.POST("/location", middleware.RateLimit(limiter, "track_location", cfg.LocationLimit), trackHandler.UpdateLocation)

	// Operator authentication
	auth := router.Group("/api/auth")
	auth.POST("/login", middleware.RateLimit(limiter, "login", cfg.LoginLimit), authHandler.Login)
	auth.POST("/password-reset", middleware.RateLimit(limiter, "password_reset", cfg.PasswordResetLimit), authHandler.RequestPasswordReset)

	// Operator channel management
	channels := router.Group("/api/channels")
	channels.Use(middleware.Auth(authService))
	channels.GET("", channelHandler.List)
	channels.POST("", middleware.DemoGuard(subscriptionService), channelHandler.Create)
	channels.PUT("/reorder", middleware.DemoGuard(subscriptionService), channelHandler.Reorder)

	// WebSocket route
	if cfg.EnableWebSocket {
		router.GET("/ws", wsHandler.HandleConnections)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"services": map[string]string{
				"database": "connected",
				"redis": func() string {
					if cacheMgr.IsAvailable() {
						return "connected"
					}
					return "local_cache_only"
				}(),
			},
		})
	})

	port := ":" + cfg.ServerPort
	log.Printf("Server starting on port %s", port)

	if err := router.Run(port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
