package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/campus-service/internal/api/http/handlers"
	"github.com/spec-kit/campus-service/internal/auth"
	"github.com/spec-kit/campus-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Discussions    *handlers.DiscussionsHandler
	Communities    *handlers.CommunitiesHandler
	News           *handlers.NewsHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         policy.Policy
	Metrics        nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	authn := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAuth()}
	privileged := append(authn[:len(authn):len(authn)], auth.RequirePrivileged(cfg.Policy))
	with := func(chain []fiber.Handler, h fiber.Handler) []fiber.Handler {
		return append(chain[:len(chain):len(chain)], h)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)

	discussions := api.Group("/discussions")
	discussions.Get("/search", cfg.Discussions.Search)
	discussions.Get("/:id", cfg.Discussions.Get)
	discussions.Post("", with(authn, cfg.Discussions.Create)...)
	discussions.Post("/:id/messages", with(authn, cfg.Discussions.SendMessage)...)
	discussions.Delete("/:id", with(authn, cfg.Discussions.Delete)...)

	messages := api.Group("/messages")
	messages.Patch("/:id", with(authn, cfg.Discussions.UpdateMessage)...)
	messages.Delete("/:id", with(authn, cfg.Discussions.DeleteMessage)...)

	communities := api.Group("/communities")
	communities.Get("", cfg.Communities.List)
	communities.Get("/:id", cfg.Communities.Get)
	communities.Get("/:id/discussions", cfg.Communities.Discussions)
	communities.Post("", with(privileged, cfg.Communities.Create)...)
	communities.Patch("/:id/join", with(authn, cfg.Communities.Join)...)

	news := api.Group("/news")
	news.Get("", cfg.News.List)
	news.Post("", with(privileged, cfg.News.Create)...)
	news.Post("/subscriptions", with(authn, cfg.News.Subscribe)...)
}
