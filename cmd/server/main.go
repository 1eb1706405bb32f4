package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/mmkdev/account-factory/internal/config"
	"github.com/mmkdev/account-factory/internal/database"
	"github.com/mmkdev/account-factory/internal/dto"
	"github.com/mmkdev/account-factory/internal/handlers"
	"github.com/mmkdev/account-factory/internal/logging"
	"github.com/mmkdev/account-factory/internal/mailprovider"
	"github.com/mmkdev/account-factory/internal/middleware"
	"github.com/mmkdev/account-factory/internal/registration"
	"github.com/mmkdev/account-factory/internal/routes"
	"github.com/mmkdev/account-factory/internal/services"
	"github.com/mmkdev/account-factory/internal/store"
	"github.com/mmkdev/account-factory/internal/worker"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.AdminToken == "" && cfg.AdminTokenHash == "" {
		slog.Error("ADMIN_TOKEN or ADMIN_TOKEN_HASH environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// DB log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		dbLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Mail providers
	mailtm := mailprovider.NewMailTM(cfg.MailTMBaseURL, cfg.MailboxTimeout)
	registry := mailprovider.NewRegistry(mailtm)

	// Orchestrator
	st := store.NewGormStore(database.DB)
	guard := worker.NewRateGuard(cfg.Worker.RateLimitCooldown)
	register := registration.Simulated(cfg.Worker.RegisterDelayMin, cfg.Worker.RegisterDelayMax)
	orchestrator := worker.New(st, registry, register, guard, cfg.Worker, cfg.MailboxTimeout)

	// Pick up jobs interrupted by the previous process
	if resumed, err := orchestrator.ResumePending(context.Background()); err != nil {
		slog.Error("failed to resume pending jobs", "error", err)
	} else if resumed > 0 {
		slog.Info("resumed pending jobs", "count", resumed)
	}

	// Services
	accountService := services.NewAccountService(st, registry, orchestrator)
	exportService := services.NewExportService(st)
	authService := services.NewAuthService(cfg)

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService)
	inboxHandler := handlers.NewInboxHandler(accountService)
	exportHandler := handlers.NewExportHandler(exportService)
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(database.Ping)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, accountHandler, inboxHandler, exportHandler, authHandler, healthHandler)

	// Graceful shutdown. In-flight jobs are abandoned in processing state
	// and resumed by the next process.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
