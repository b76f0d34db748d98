package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codearena/arena-go-api/internal/config"
	"github.com/codearena/arena-go-api/internal/handler"
	"github.com/codearena/arena-go-api/internal/middleware"
	"github.com/codearena/arena-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler *handler.QuestionHandler
	ResponseHandler *handler.ResponseHandler
	BattleHandler   *handler.BattleHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Question catalog
	if deps.QuestionHandler != nil {
		questions := app.Group("/api/v1/questions", jwtMiddleware)
		deps.QuestionHandler.Register(questions)
	}

	// Response ledger and grading
	if deps.ResponseHandler != nil {
		responses := app.Group("/api/v1/responses", jwtMiddleware)
		deps.ResponseHandler.Register(responses)

		activities := app.Group("/api/v1/activities", jwtMiddleware)
		deps.ResponseHandler.RegisterActivityRoutes(activities)
	}

	// Battles, with a per-user limiter in front of the runner
	if deps.BattleHandler != nil {
		battles := app.Group("/api/v1/battles", jwtMiddleware, middleware.RateLimit("battles", 30, time.Minute))
		deps.BattleHandler.Register(battles)
	}
}
