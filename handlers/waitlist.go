package handlers

import (
	"encoding/json"

	"waitlist-referral-system/middleware"
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func SetupWaitlistRoutes(api fiber.Router, d *Deps) {
	handlers := []fiber.Handler{}
	if !d.DisableRateLimit {
		handlers = append(handlers, middleware.JoinLimiter())
	}
	handlers = append(handlers, joinWaitlist(d))
	api.Post("/waitlist/join", handlers...)
}

// joinWaitlist replays a stored response for a repeated key; otherwise it
// runs the join and stores the exact bytes it sends.
func joinWaitlist(d *Deps) fiber.Handler {
	log := logrus.WithField("component", "waitlist_http")
	return func(c *fiber.Ctx) error {
		var req services.JoinRequest
		if err := c.BodyParser(&req); err != nil {
			services.RecordJoinOutcome(services.CodeValidation)
			return services.NewValidationError("Invalid request data")
		}

		key, err := services.ExtractIdempotencyKey(c.Get(services.IdempotencyHeader), req.Email)
		if err != nil {
			services.RecordJoinOutcome(services.CodeValidation)
			return err
		}

		ctx := c.UserContext()
		if body, ok := d.Guard.Check(ctx, key); ok {
			services.RecordJoinOutcome("replayed")
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		}

		result, err := d.Waitlist.Join(ctx, req)
		if err != nil {
			if appErr, ok := services.AsAppError(err); ok {
				services.RecordJoinOutcome(appErr.Code)
			} else {
				services.RecordJoinOutcome(services.CodeInternal)
			}
			return err
		}

		body, err := json.Marshal(result)
		if err != nil {
			return err
		}
		d.Guard.Remember(ctx, key, body)

		if err := middleware.SetSessionCookie(c, d.Sessions, result.ParticipantID, result.Email, secureCookies(d)); err != nil {
			log.WithError(err).Warn("failed to issue session after join")
		}

		services.RecordJoinOutcome("ok")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}
