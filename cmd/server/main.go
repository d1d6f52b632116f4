package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/api"
	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository/store"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/storage"
)

// How often expired sessions are dropped from the registry.
const sessionSweepInterval = time.Minute

// @title Fitness Coach API
// @version 1.0
// @description API for students, trainers and the adminmaster of a fitness coaching app.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("could not load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting fitness coach server", "driver", cfg.Database.Driver, "address", cfg.Server.Address)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Document Store ---
	repos, closeStore, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("could not open document store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(ctx, cfg.S3, logger)
	if err != nil {
		logger.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}

	// --- Identity Provider ---
	provider := identity.NewProvider(repos.Credentials, cfg.JWT.Secret, cfg.JWT.Expiration, logger)
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				provider.SweepExpired()
			}
		}
	}()

	// --- Initialize Services ---
	scope := access.NewScope(repos.Students)
	services := api.Services{
		Auth:     service.NewAuthService(provider, repos.Accounts, repos.Students, scope, logger),
		Students: service.NewStudentService(repos.Students, repos.Routines, repos.Injuries, repos.Progress, fileStorage, scope, logger),
		Trainers: service.NewTrainerService(repos.Students, repos.Routines, repos.Injuries, repos.Progress, fileStorage, scope, logger),
		Admin:    service.NewAdminService(provider, repos.Accounts, repos.Students, repos.Trainers, logger),
		Provider: provider,
		Accounts: repos.Accounts,
	}

	// --- Initialize Gin Engine ---
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.TraceMiddleware(), api.RequestLogger(logger))
	api.SetupRoutes(router, services)

	// --- Start HTTP Server ---
	// No WriteTimeout: event streams stay open for the life of a screen.
	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			stop()
		}
	}()
	logger.Info("server started", "address", cfg.Server.Address)

	// --- Graceful Shutdown ---
	<-ctx.Done()
	logger.Info("shutting down server")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server exiting")
}
