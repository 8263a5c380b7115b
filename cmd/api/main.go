package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/veilport/veilport/internal/api/handlers"
	"github.com/veilport/veilport/internal/api/router"
	"github.com/veilport/veilport/internal/auth"
	"github.com/veilport/veilport/internal/config"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/validator"
	"github.com/veilport/veilport/internal/repository/postgres"
	"github.com/veilport/veilport/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := postgres.NewUserRepository(db)
	premiumRepo := postgres.NewPremiumRepository(db)

	hasher := auth.NewPasswordHasher(cfg.Auth.BCryptCost)
	totp := auth.NewTOTP(cfg.Auth.TOTPIssuer)
	v := validator.New()

	userSvc := services.NewUserService(userRepo, hasher, totp, log)
	premiumSvc := services.NewPremiumService(premiumRepo, userRepo, log)

	handler := router.New(router.Deps{
		Config:  cfg,
		Logger:  log,
		Auth:    handlers.NewAuthHandler(userSvc, premiumSvc, v, log, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.IsProduction()),
		Premium: handlers.NewPremiumHandler(premiumSvc, v, log),
		Admin:   handlers.NewAdminHandler(userSvc, premiumSvc, v, log),
		Health:  handlers.NewHealthHandler(db),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Info("Server stopped")
}
