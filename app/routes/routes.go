// app/routes/routes.go
package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travorier/app/controllers"
	"travorier/app/middlewares"
	"travorier/app/utils"
)

// HealthCheck checks one backing service
type HealthCheck func(ctx context.Context) error

// Controllers groups the HTTP handlers mounted under /api/v1
type Controllers struct {
	Offers   *controllers.OfferController
	Requests *controllers.RequestController
	Matches  *controllers.MatchController
	Chat     *controllers.ChatController
	Credits  *controllers.CreditController
}

// Options configures route setup
type Options struct {
	AppName     string
	AppVersion  string
	Tokens      *utils.JWTManager
	AdminAPIKey string
	Checks      map[string]HealthCheck
}

func SetupRoutes(app *fiber.App, h Controllers, opts Options) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		status := "ok"
		services := map[string]string{}
		for name, check := range opts.Checks {
			if err := check(ctx); err != nil {
				services[name] = "error: " + err.Error()
				status = "degraded"
			} else {
				services[name] = "ok"
			}
		}

		code := fiber.StatusOK
		if status != "ok" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services":  services,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API version endpoint
	app.Get("/api/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":   opts.AppVersion,
			"name":      opts.AppName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := app.Group("/api/v1")

	internal := api.Group("/internal", middlewares.AdminKeyMiddleware(opts.AdminAPIKey))
	internal.Post("/credits/grants", h.Credits.Grant)

	auth := middlewares.JWTMiddleware(opts.Tokens)

	trips := api.Group("/trips", auth)
	trips.Get("/", h.Offers.Search)
	trips.Post("/", h.Offers.Create)
	trips.Get("/mine", h.Offers.Mine)
	trips.Get("/:id", h.Offers.Get)
	trips.Delete("/:id", h.Offers.Cancel)
	trips.Post("/:id/boost", h.Offers.Boost)

	requests := api.Group("/requests", auth)
	requests.Get("/", h.Requests.List)
	requests.Post("/", h.Requests.Create)
	requests.Get("/:id", h.Requests.Get)
	requests.Get("/:id/matches", h.Requests.Matches)

	matches := api.Group("/matches", auth)
	matches.Get("/", h.Matches.List)
	matches.Post("/", h.Matches.Create)
	matches.Get("/:id", h.Matches.Get)
	matches.Post("/:id/unlock", h.Matches.Unlock)
	matches.Post("/:id/accept", h.Matches.Accept)
	matches.Post("/:id/reject", h.Matches.Reject)
	matches.Get("/:id/messages", h.Chat.History)
	matches.Post("/:id/messages", h.Chat.Send)
	matches.Get("/:id/channel", h.Chat.Status)

	api.Get("/credits", auth, h.Credits.Balance)
}
