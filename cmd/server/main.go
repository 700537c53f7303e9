package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tippool/backend/internal/application/audit"
	groupingapp "github.com/tippool/backend/internal/application/grouping"
	ledgerapp "github.com/tippool/backend/internal/application/ledger"
	tipoutapp "github.com/tippool/backend/internal/application/tipout"
	"github.com/tippool/backend/internal/infrastructure/auth"
	"github.com/tippool/backend/internal/infrastructure/cache"
	"github.com/tippool/backend/internal/infrastructure/config"
	"github.com/tippool/backend/internal/infrastructure/event"
	"github.com/tippool/backend/internal/infrastructure/logger"
	"github.com/tippool/backend/internal/infrastructure/persistence"
	"github.com/tippool/backend/internal/interfaces/http/handler"
	"github.com/tippool/backend/internal/interfaces/http/middleware"
	"github.com/tippool/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//	@title			Tip Ledger API
//	@version		1.0
//	@description	Tip ledger and dynamic tip-group allocation engine

//	@contact.name	API Support
//	@contact.url	https://github.com/tippool/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Tip Ledger Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	entryRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	balanceRepo := persistence.NewGormWorkerBalanceRepository(db.DB)
	policyRepo := persistence.NewGormLedgerPolicyRepository(db.DB)
	groupRepo := persistence.NewGormTipGroupRepository(db.DB)
	membershipRepo := persistence.NewGormMembershipRepository(db.DB)
	segmentRepo := persistence.NewGormSegmentRepository(db.DB)
	anomalyRepo := persistence.NewGormAnomalyRepository(db.DB)
	ruleRepo := persistence.NewGormTipOutRuleRepository(db.DB)

	// Idempotency store for shift-close guards. Redis in production,
	// in-memory when Redis is unreachable.
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Activity trail: every domain event is logged once, deduplicated by
	// event id so redelivery does not double-log.
	activityLogger := audit.NewActivityLogger(log.Named("activity"))
	eventBus.Subscribe(event.NewIdempotentHandler(activityLogger, idempotencyStore, log))

	// Initialize application services
	splitTolerance := decimal.NewFromFloat(cfg.Grouping.SplitTolerance)
	groupService := groupingapp.NewGroupService(
		persistence.NewGormGroupingTransactionScope(db.DB),
		groupRepo, membershipRepo, segmentRepo, eventBus, splitTolerance,
	)
	allocationService := groupingapp.NewAllocationService(
		persistence.NewGormGroupingTransactionScope(db.DB),
		anomalyRepo, eventBus, splitTolerance,
	)
	earningsService := groupingapp.NewEarningsService(entryRepo, segmentRepo)
	ledgerService := ledgerapp.NewLedgerService(
		persistence.NewGormLedgerTransactionScope(db.DB),
		entryRepo, balanceRepo, policyRepo, eventBus, cfg.Ledger.AllowNegativeBalances,
	)
	transferService := ledgerapp.NewTransferService(
		persistence.NewGormLedgerTransactionScope(db.DB),
		eventBus, cfg.Ledger.AllowNegativeBalances,
	)
	ruleService := tipoutapp.NewRuleService(ruleRepo)
	ruleImportService := tipoutapp.NewRuleImportService(ruleRepo)
	evaluationService := tipoutapp.NewEvaluationService(
		persistence.NewGormTipOutTransactionScope(db.DB),
		idempotencyStore, eventBus, cfg.TipOut.ShiftGuardTTL,
	)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	groupHandler := handler.NewGroupHandler(groupService, earningsService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	transferHandler := handler.NewTransferHandler(transferService)
	ruleHandler := handler.NewTipOutRuleHandler(ruleService, ruleImportService)
	anomalyHandler := handler.NewAnomalyHandler(allocationService)
	posHandler := handler.NewPOSHandler(allocationService, evaluationService, groupService, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes.
	// POS intake endpoints are called by the point-of-sale integration and
	// authenticate at the gateway, not per request.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/pos",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Grouping domain (tip groups, memberships, timeline)
	groupRoutes := router.NewDomainGroup("groups", "/groups")
	groupRoutes.POST("", groupHandler.Start)
	groupRoutes.GET("", groupHandler.ListOpen)
	groupRoutes.GET("/:id", groupHandler.GetByID)
	groupRoutes.POST("/:id/join-requests", groupHandler.RequestJoin)
	groupRoutes.GET("/:id/join-requests", groupHandler.ListPending)
	groupRoutes.POST("/:id/join-requests/:membershipId/approve", groupHandler.ApproveJoin)
	groupRoutes.POST("/:id/members", groupHandler.AddMember)
	groupRoutes.DELETE("/:id/members/:workerId", groupHandler.RemoveMember)
	groupRoutes.PUT("/:id/members/:workerId/share", groupHandler.UpdateShare)
	groupRoutes.POST("/:id/transfer-ownership", groupHandler.TransferOwnership)
	groupRoutes.PUT("/:id/split-mode", groupHandler.ChangeSplitMode)
	groupRoutes.POST("/:id/close", groupHandler.Close)
	groupRoutes.GET("/:id/timeline", groupHandler.Timeline)
	groupRoutes.GET("/:id/timeline/at", groupHandler.SegmentAt)
	groupRoutes.GET("/:id/earnings", groupHandler.Earnings)

	// Ledger domain (balances, entries, reconciliation, policy)
	ledgerRoutes := router.NewDomainGroup("ledger", "/ledger")
	ledgerRoutes.GET("/workers/:workerId/balance", ledgerHandler.GetBalance)
	ledgerRoutes.GET("/workers/:workerId/entries", ledgerHandler.ListEntries)
	ledgerRoutes.POST("/workers/:workerId/reconcile", ledgerHandler.Reconcile)
	ledgerRoutes.GET("/balances", ledgerHandler.ListBalances)
	ledgerRoutes.POST("/entries", ledgerHandler.PostAdjustment)
	ledgerRoutes.GET("/policy", ledgerHandler.GetPolicy)
	ledgerRoutes.PUT("/policy", ledgerHandler.UpdatePolicy)

	// Transfers and payouts
	transferRoutes := router.NewDomainGroup("transfers", "/transfers")
	transferRoutes.POST("", transferHandler.Transfer)
	payoutRoutes := router.NewDomainGroup("payouts", "/payouts")
	payoutRoutes.POST("", transferHandler.Payout)

	// Tip-out rules
	ruleRoutes := router.NewDomainGroup("tip-out-rules", "/tip-out-rules")
	ruleRoutes.POST("", ruleHandler.Create)
	ruleRoutes.POST("/import", ruleHandler.Import)
	ruleRoutes.GET("", ruleHandler.List)
	ruleRoutes.GET("/:id", ruleHandler.GetByID)
	ruleRoutes.PUT("/:id", ruleHandler.Update)
	ruleRoutes.POST("/:id/expire", ruleHandler.Expire)
	ruleRoutes.DELETE("/:id", ruleHandler.Delete)

	// Allocation anomalies
	anomalyRoutes := router.NewDomainGroup("anomalies", "/anomalies")
	anomalyRoutes.GET("", anomalyHandler.List)
	anomalyRoutes.POST("/:id/resolve", anomalyHandler.Resolve)

	// POS intake (payment captures, shift closes, clock-outs)
	posRoutes := router.NewDomainGroup("pos", "/pos")
	posRoutes.POST("/payments/captured", posHandler.PaymentCaptured)
	posRoutes.POST("/shifts/closed", posHandler.ShiftClosed)
	posRoutes.POST("/clock-outs", posHandler.ClockedOut)

	// Register all domain groups
	r.Register(groupRoutes).
		Register(ledgerRoutes).
		Register(transferRoutes).
		Register(payoutRoutes).
		Register(ruleRoutes).
		Register(anomalyRoutes).
		Register(posRoutes)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
