package handlers

import (
	"encoding/json"

	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

type trackEventRequest struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	UserID  *string         `json:"userId"`
}

func SetupEventRoutes(api fiber.Router, d *Deps) {
	api.Post("/events", func(c *fiber.Ctx) error {
		var req trackEventRequest
		if err := c.BodyParser(&req); err != nil {
			return services.NewValidationError("Invalid request data")
		}

		var payload interface{}
		if len(req.Payload) > 0 && string(req.Payload) != "null" {
			payload = req.Payload
		}
		if err := d.Events.Track(c.UserContext(), req.UserID, req.Event, payload); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
