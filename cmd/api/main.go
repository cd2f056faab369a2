package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/delordemm1/go-auth-sessions/internal/audit"
	"github.com/delordemm1/go-auth-sessions/internal/cache"
	"github.com/delordemm1/go-auth-sessions/internal/config"
	"github.com/delordemm1/go-auth-sessions/internal/database"
	"github.com/delordemm1/go-auth-sessions/internal/modules/user"
	"github.com/delordemm1/go-auth-sessions/internal/notification"
	"github.com/delordemm1/go-auth-sessions/internal/notification/templates"
	"github.com/delordemm1/go-auth-sessions/internal/password"
	"github.com/delordemm1/go-auth-sessions/internal/ratelimit"
	"github.com/delordemm1/go-auth-sessions/internal/server"
	"github.com/delordemm1/go-auth-sessions/internal/session"
	"github.com/delordemm1/go-auth-sessions/internal/token"
	"github.com/delordemm1/go-auth-sessions/internal/verification"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on, overrides SERVER_PORT" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		// Use a structured logger
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		cfg, err := config.Load()
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)
		if options.Port != 0 {
			cfg.Server.Port = options.Port
		}

		ctx := context.Background()

		// --- Database & Cache ---
		dbPool, err := database.NewPostgresPool(ctx, cfg.Database.URL, cfg.Database.MaxRetries, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to postgres database")

		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to redis")

		// --- Keys & Tokens ---
		keys, err := token.LoadKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
		if err != nil {
			logger.Error("failed to load jwt keys", "error", err)
			os.Exit(1)
		}
		signer, err := token.NewSigner(keys, token.Config{
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			KeyID:    cfg.JWT.KeyID,
		})
		if err != nil {
			logger.Error("failed to create token signer", "error", err)
			os.Exit(1)
		}

		// --- Module Initialization (Bottom-Up) ---
		tx := database.PoolTransactor{DB: dbPool}
		counter := ratelimit.New(redisClient)

		var sender notification.EmailSender
		if cfg.SMTP.Host != "" {
			sender = notification.NewSMTPEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger)
		} else {
			logger.Warn("SMTP_HOST is not set, verification emails will only be logged")
			sender = notification.NewLogEmailSender(logger)
		}
		mailer := notification.NewMailer(notification.MailerConfig{
			Sender:    sender,
			Templates: templates.NewEngine(templates.Config{}, logger),
			Logger:    logger,
			WebOrigin: cfg.Server.WebOrigin,
			TokenTTL:  cfg.Verification.TokenTTL,
		})

		verifications, err := verification.NewService(verification.Config{
			DB:              tx,
			Repos:           verification.NewRepository,
			Limiter:         counter,
			Deliverer:       mailer,
			Logger:          logger,
			HMACKey:         cfg.HMACKey,
			TTL:             cfg.Verification.TokenTTL,
			MaxDailyResends: cfg.Verification.MaxDailyResends,
			ResendCooldown:  cfg.Verification.ResendCooldown,
			ResendWindow:    cfg.Verification.ResendWindow,
		})
		if err != nil {
			logger.Error("failed to create verification service", "error", err)
			os.Exit(1)
		}

		sessions, err := session.NewManager(session.Config{
			DB:         tx,
			Conn:       dbPool,
			Repos:      session.NewRepository,
			Audit:      audit.NewRecorder,
			Tokens:     signer,
			Denylist:   counter,
			Logger:     logger,
			Limit:      cfg.Session.Limit,
			RefreshTTL: cfg.JWT.RefreshTTL,
		})
		if err != nil {
			logger.Error("failed to create session manager", "error", err)
			os.Exit(1)
		}

		hasher, err := password.NewHasher(password.DefaultParams)
		if err != nil {
			logger.Error("failed to create password hasher", "error", err)
			os.Exit(1)
		}

		userService, err := user.NewService(user.ServiceConfig{
			DB:            tx,
			Conn:          dbPool,
			Repos:         user.NewRepository,
			Audit:         audit.NewRecorder,
			Passwords:     password.NewAuthenticator(hasher, cfg.Password.MismatchDelay),
			Verifications: verifications,
			Sessions:      sessions,
			Tokens:        signer,
			AccessTTL:     cfg.JWT.AccessTTL,
			Logger:        logger,
		})
		if err != nil {
			logger.Error("failed to create user service", "error", err)
			os.Exit(1)
		}

		router := server.New(cfg, logger, userService, sessions)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			logger.Info(fmt.Sprintf("Starting server on port %d...", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server failed to start", "error", err)
				os.Exit(1)
			}
		})
		hooks.OnStop(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
			}
			if err := redisClient.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
			dbPool.Close()
			logger.Info("server stopped")
		})
	})
	cli.Run()
}
