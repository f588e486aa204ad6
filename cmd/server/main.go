package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jmorrow/portfolio-api/internal/analytics"
	"github.com/jmorrow/portfolio-api/internal/auth"
	"github.com/jmorrow/portfolio-api/internal/config"
	"github.com/jmorrow/portfolio-api/internal/database"
	"github.com/jmorrow/portfolio-api/internal/ledger"
	"github.com/jmorrow/portfolio-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the portfolio analytics API server with graceful
// shutdown support. It wires the ledger store, the analytics engine, and the
// API routes.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.Auth.JWTSecret)
	authService.RegisterAPICredentials(cfg.Auth.APIKey, cfg.Auth.APISecret)
	authHandlers := auth.NewGinHandlers(authService)

	ledgerService := ledger.NewService(db)
	ledgerHandlers := ledger.NewGinHandlers(ledgerService)

	analyticsService := analytics.NewService(db)
	analyticsHandlers := analytics.NewGinHandlers(analyticsService)

	// Create and start the periodic analytics refresher
	refresher := analytics.NewRefresher(analyticsService)
	refresherCtx, refresherCancel := context.WithCancel(context.Background())
	defer refresherCancel()

	go refresher.Start(refresherCtx)

	// Setup middleware
	metrics := middleware.NewMetrics()
	router.Use(metrics.Instrument())
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.Auth.JWTSecret, metrics, authHandlers, ledgerHandlers, analyticsHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()
	zlog.Info().Str("port", cfg.Server.Port).Msg("Server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// Routes are grouped by concern:
// - Auth routes: public token issuance
// - Ledger reads: protected by JWT authentication
// - Ledger writes: protected by internal authentication (loader/simulation)
// - Analytics routes: protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	metrics *middleware.Metrics,
	authHandlers *auth.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
	analyticsHandlers *analytics.GinHandlers,
) {
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Ledger read routes
		reads := v1.Group("")
		reads.Use(middleware.JWTAuth(jwtSecret))
		{
			reads.GET("/instruments", ledgerHandlers.ListInstrumentsHandler())
			reads.GET("/trades", ledgerHandlers.ListTradesHandler())
			reads.GET("/prices", ledgerHandlers.ListPricesHandler())
		}

		// Ledger write routes (loader and simulation jobs)
		writes := v1.Group("")
		writes.Use(middleware.InternalAuth(jwtSecret))
		{
			writes.POST("/instruments", ledgerHandlers.CreateInstrumentHandler())
			writes.POST("/trades", ledgerHandlers.RecordTradeHandler())
			writes.POST("/prices", ledgerHandlers.RecordPriceBarHandler())
		}

		// Analytics routes
		analyticsGroup := v1.Group("/analytics")
		analyticsGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			analyticsGroup.GET("/realized", analyticsHandlers.RealizedPnLHandler())
			analyticsGroup.GET("/unrealized", analyticsHandlers.UnrealizedPnLHandler())
			analyticsGroup.GET("/equity-curve", analyticsHandlers.EquityCurveHandler())
			analyticsGroup.GET("/positions", analyticsHandlers.PositionsHandler())
		}
	}
}
