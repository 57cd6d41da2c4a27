package handlers

import (
	"strings"

	"waitlist-referral-system/middleware"
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMeRoutes(api fiber.Router, d *Deps) {
	api.Get("/me/summary", meSummary(d))
}

// meSummary takes the email from the query string, falling back to the
// session cookie.
func meSummary(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email := strings.TrimSpace(c.Query("email"))
		if email == "" {
			if claims := middleware.Session(c); claims != nil {
				email = claims.Email
			}
		}
		if email == "" {
			return services.NewValidationError("email required")
		}

		summary, err := d.Points.Summary(c.UserContext(), email)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}
