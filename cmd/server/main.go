// Package main runs the GSMB backend: the HTTP API that mediates between
// the role front-ends and the backing Redmine instance.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/auth"
	"github.com/mmpro-lk/gsmb-backend/internal/config"
	"github.com/mmpro-lk/gsmb-backend/internal/httpapi"
	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
	"github.com/mmpro-lk/gsmb-backend/internal/otp"
	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
	"github.com/mmpro-lk/gsmb-backend/internal/services/engineer"
	"github.com/mmpro-lk/gsmb-backend/internal/services/management"
	"github.com/mmpro-lk/gsmb-backend/internal/services/mlowner"
	"github.com/mmpro-lk/gsmb-backend/internal/services/officer"
	"github.com/mmpro-lk/gsmb-backend/internal/services/police"
	"github.com/mmpro-lk/gsmb-backend/internal/services/public"
	"github.com/mmpro-lk/gsmb-backend/internal/sms"
	"github.com/mmpro-lk/gsmb-backend/internal/travel"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func run(logger *logrus.Logger) error {
	// A missing .env is fine in containerized deployments where the
	// environment comes from the orchestrator.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded settings from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	redmineClient, err := redmine.New(redmine.Config{
		BaseURL:     cfg.Redmine.URL,
		AdminAPIKey: cfg.Redmine.AdminAPIKey,
		Timeout:     cfg.Redmine.Timeout,
		PageSize:    cfg.Redmine.PageSize,
	})
	if err != nil {
		return err
	}

	estimator, err := travel.New(travel.Config{
		ORSAPIKey:    cfg.Travel.ORSAPIKey,
		NominatimURL: cfg.Travel.NominatimURL,
		UserAgent:    cfg.Travel.UserAgent,
	})
	if err != nil {
		return err
	}

	smsClient, err := sms.New(sms.Config{
		APIURL:   cfg.SMS.APIURL,
		Username: cfg.SMS.Username,
		Password: cfg.SMS.Password,
		Sender:   cfg.SMS.Sender,
	})
	if err != nil {
		return err
	}

	var otpStore otp.Store
	if cfg.Redis.Addr != "" {
		otpStore = otp.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		logger.WithField("addr", cfg.Redis.Addr).Info("using Redis OTP store")
	} else {
		otpStore = otp.NewMemoryStore()
		logger.Warn("using in-memory OTP store, codes do not survive restarts")
	}
	otpService := otp.NewService(otpStore, smsClient, logger)

	manager, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	api := httpapi.New(
		logger,
		manager,
		auth.NewLoginService(redmineClient, manager),
		redmineClient,
		httpapi.Services{
			MLOwner:    mlowner.New(redmineClient, estimator, logger),
			Officer:    officer.New(redmineClient, logger),
			Engineer:   engineer.New(redmineClient, logger),
			Police:     police.New(redmineClient, logger),
			Public:     public.New(redmineClient, otpService, logger),
			Management: management.New(redmineClient, logger),
		},
		middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, logger),
		cfg.Server.AllowedOrigins,
	)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("GSMB backend listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
