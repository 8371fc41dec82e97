package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/medcv-review/internal/http/handlers"
	"github.com/diagnosis/medcv-review/internal/platform/auth"
	"github.com/diagnosis/medcv-review/internal/service"
	"github.com/diagnosis/medcv-review/pkg/config"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	// Event bus
	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	mail := newMailer(cfg)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	hasher := auth.NewHasher(nil)

	// Services
	authSvc := service.NewAuthService(b.store.Users, tokens, hasher, mail, bus, service.AuthOptions{
		ResetTokenInResponse: cfg.Auth.ResetTokenInResponse,
		AppBaseURL:           cfg.Auth.AppBaseURL,
	})
	cvSvc := service.NewCVService(b.store.CVs, b.store.Users, bus, nil)
	reviewSvc := service.NewReviewService(b.store.Reviews, b.store.CVs, b.store.Users, bus, nil)
	adminSvc := service.NewAdminService(b.store.CVs, b.store.Reviews)

	notifier := service.NewReviewNotifier(b.store.Users, mail, cfg.Auth.AppBaseURL)
	if err := notifier.Start(bus); err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		ServiceName:    "medcv-review",
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		Auth:           authSvc,
		CVs:            cvSvc,
		Reviews:        reviewSvc,
		Admin:          adminSvc,
		Limiter:        b.limiter,
		Idempotency:    b.idempotency,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go b.janitor(ctx)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port, "store", cfg.Store.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
