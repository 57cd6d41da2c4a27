package handlers

import (
	"strings"

	"waitlist-referral-system/config"
	"waitlist-referral-system/middleware"
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP layer needs. main builds it once.
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Waitlist    *services.WaitlistService
	Attribution *services.AttributionEngine
	Points      *services.PointsService
	Leaderboard *services.LeaderboardService
	Guard       *services.IdempotencyGuard
	Sessions    *services.SessionManager
	Auth        *services.AuthService
	Events      *services.EventService

	// DisableRateLimit is set by tests that replay many joins from one IP.
	DisableRateLimit bool
	// DisableAccessLog keeps test output quiet.
	DisableAccessLog bool
}

// NewApp builds the fiber application with middleware and every route.
func NewApp(d *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "waitlist-referral",
		BodyLimit:    64 * 1024,
		ErrorHandler: middleware.ErrorHandler(d.Config.IsDevelopment()),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(corsMiddleware(d.Config.AppOrigins))
	if !d.DisableAccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(middleware.SessionMiddleware(d.Sessions))

	api := app.Group("/api")
	SetupHealthRoutes(api, d)
	SetupWaitlistRoutes(api, d)
	SetupLeaderboardRoutes(api, d)
	SetupMeRoutes(api, d)
	SetupAuthRoutes(api, d)
	SetupEventRoutes(api, d)
	SetupReferralRoutes(app, api, d)

	app.Get("/metrics",
		middleware.BearerTokenMiddleware(d.Config.MetricsToken),
		adaptor.HTTPHandler(promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})),
	)

	return app
}

func corsMiddleware(origins []string) fiber.Handler {
	if len(origins) == 0 {
		return cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders: "Content-Type, Authorization, X-Request-ID, Idempotency-Key",
		})
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type, Authorization, X-Request-ID, Idempotency-Key",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, Idempotent-Replayed",
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

func secureCookies(d *Deps) bool {
	return !d.Config.IsDevelopment()
}
