package middleware

import (
	"time"

	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// JoinLimiter allows 60 join attempts per IP per 15 minutes.
func JoinLimiter() fiber.Handler {
	return newLimiter(60, 15*time.Minute, "Too many join requests from this IP, please try again later.")
}

// AuthLimiter allows 10 OTP requests per IP per 15 minutes.
func AuthLimiter() fiber.Handler {
	return newLimiter(10, 15*time.Minute, "Too many authentication attempts, please try again later.")
}

func newLimiter(max int, window time.Duration, msg string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error: msg,
				Code:  services.CodeRateLimited,
			})
		},
	})
}
