package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/mmkdev/account-factory/internal/config"
	"github.com/mmkdev/account-factory/internal/handlers"
	"github.com/mmkdev/account-factory/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	accountHandler *handlers.AccountHandler,
	inboxHandler *handlers.InboxHandler,
	exportHandler *handlers.ExportHandler,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)
	api.Get("/rate-limit-status", accountHandler.RateLimitStatus)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/login", authHandler.Login)

	accounts := api.Group("/accounts")
	accounts.Post("/create", accountHandler.CreateBatch)
	accounts.Get("/job/:jobID", accountHandler.JobStatus)
	accounts.Get("/", accountHandler.List)

	// Exports before the :id routes so "export" isn't captured as an id
	exports := accounts.Group("/export", middleware.AdminRequired(cfg))
	exports.Get("/txt", exportHandler.TXT)
	exports.Get("/csv", exportHandler.CSV)
	exports.Get("/xlsx", exportHandler.XLSX)

	accounts.Post("/:id/verify-login", accountHandler.VerifyLogin)
	accounts.Put("/:id/status", accountHandler.UpdateStatus)
	accounts.Put("/:id/regenerate", accountHandler.Regenerate)
	accounts.Get("/:id/inbox", inboxHandler.List)
	accounts.Get("/:id/inbox/:messageID", inboxHandler.Get)

	// Destructive endpoints require the admin gate
	accounts.Delete("/:id", middleware.AdminRequired(cfg), accountHandler.Delete)
	accounts.Delete("/", middleware.AdminRequired(cfg), accountHandler.DeleteAll)
	accounts.Post("/delete-multiple", middleware.AdminRequired(cfg), accountHandler.DeleteMultiple)
}
