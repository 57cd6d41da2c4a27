package handlers

import (
	"context"
	"time"

	"waitlist-referral-system/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const serviceName = "goampy-bff"

type healthResponse struct {
	OK      bool   `json:"ok"`
	DB      bool   `json:"db"`
	Service string `json:"svc"`
	Version string `json:"version,omitempty"`
	TS      string `json:"ts"`
}

func SetupHealthRoutes(api fiber.Router, d *Deps) {
	api.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		resp := healthResponse{
			OK:      true,
			DB:      true,
			Service: serviceName,
			Version: d.Config.GitSHA,
			TS:      time.Now().UTC().Format(time.RFC3339),
		}
		if err := storage.Ping(ctx, d.DB); err != nil {
			logrus.WithError(err).Error("health check: database unreachable")
			resp.OK = false
			resp.DB = false
			return c.Status(fiber.StatusInternalServerError).JSON(resp)
		}
		return c.JSON(resp)
	})
}
