package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/api"
	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/cache"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/internal/mail"
	"github.com/steemit/simpleforum/internal/shortener"
	"github.com/steemit/simpleforum/internal/social"
	"github.com/steemit/simpleforum/internal/view"
	"github.com/steemit/simpleforum/pkg/config"
	"github.com/steemit/simpleforum/pkg/logging"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting simpleforum server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	mailer, err := mail.New(&cfg.Mail)
	if err != nil {
		logger.Fatal("Failed to configure mail", zap.Error(err))
	}

	sessions, err := auth.NewSessions(cfg.Server.SessionSecret, cfg.Server.SecureCookies)
	if err != nil {
		logger.Fatal("Failed to create session store", zap.Error(err))
	}

	templates, err := view.Templates()
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	service := forum.New(db.NewRepository(database.DB), forum.Options{
		Mailer:    mailer,
		Shortener: shortener.New(&cfg.Shortener, redisCache),
		Cache:     redisCache,
		BaseURL:   cfg.Server.BaseURL,
		MediaDir:  cfg.Server.MediaDir,
		MediaURL:  cfg.Server.MediaURL,
	})

	router := api.NewRouter(api.Deps{
		DB:            database,
		Cache:         redisCache,
		Forum:         service,
		Sessions:      sessions,
		Providers:     providers(&cfg.OAuth),
		Templates:     templates,
		BaseURL:       cfg.Server.BaseURL,
		MediaDir:      cfg.Server.MediaDir,
		MediaURL:      cfg.Server.MediaURL,
		SecureCookies: cfg.Server.SecureCookies,
	})

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	router.SetupRoutes(engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// providers returns the social login providers that have credentials
func providers(cfg *config.OAuthConfig) map[string]social.Provider {
	out := make(map[string]social.Provider)
	if cfg.FacebookAppID != "" {
		fb := social.NewFacebook(cfg.FacebookAppID, cfg.FacebookSecret, cfg.Timeout)
		out[fb.Name()] = fb
	}
	if cfg.GoogleClientID != "" {
		gp := social.NewGoogle(cfg.GoogleClientID, cfg.GoogleSecret, cfg.Timeout)
		out[gp.Name()] = gp
	}
	return out
}
