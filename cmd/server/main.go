package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/config"
	"github.com/projectstack/projectstack/internal/database"
	"github.com/projectstack/projectstack/internal/logger"
	"github.com/projectstack/projectstack/internal/metrics"
	"github.com/projectstack/projectstack/internal/routes"
	"github.com/projectstack/projectstack/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg)
	log.Info().Str("database_type", cfg.DatabaseType).Msg("Starting application")

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
		if err := cfg.ValidateRelease(); err != nil {
			log.Fatal().Err(err).Msg("Refusing to start with development settings")
		}
	}

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access database pool")
	}
	defer sqlDB.Close()

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := services.NewStorageService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("Failed to initialize storage")
	}

	router := routes.SetupRouter(cfg, db, routes.NewServices(cfg, db, storage), prometheus.DefaultGatherer)

	addr := cfg.ServerHost + ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
