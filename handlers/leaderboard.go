package handlers

import (
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(api fiber.Router, d *Deps) {
	api.Get("/leaderboard/top", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", services.LeaderboardDefaultLimit)
		entries, err := d.Leaderboard.Top(c.UserContext(), limit)
		if err != nil {
			return err
		}
		return c.JSON(entries)
	})
	api.Get("/leaderboard/stream", leaderboardStream(d))
}
