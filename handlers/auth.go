package handlers

import (
	"waitlist-referral-system/middleware"
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func SetupAuthRoutes(api fiber.Router, d *Deps) {
	auth := api.Group("/auth")
	if !d.DisableRateLimit {
		auth.Use(middleware.AuthLimiter())
	}
	auth.Post("/otp/send", sendOTP(d))
	auth.Post("/otp/verify", verifyOTP(d))
	auth.Get("/session", currentSession)
}

func sendOTP(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req services.OTPSendRequest
		if err := c.BodyParser(&req); err != nil {
			return services.NewValidationError("Invalid request data")
		}
		if err := services.ValidateStruct(req); err != nil {
			return err
		}
		if err := d.Auth.SendOTP(c.UserContext(), req.Email); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "OTP sent successfully",
			"email":   req.Email,
		})
	}
}

func verifyOTP(d *Deps) fiber.Handler {
	log := logrus.WithField("component", "auth_http")
	return func(c *fiber.Ctx) error {
		var req services.OTPVerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return services.NewValidationError("Invalid request data")
		}
		if err := services.ValidateStruct(req); err != nil {
			return err
		}

		result, err := d.Auth.VerifyOTP(c.UserContext(), req.Email, req.Token)
		if err != nil {
			return err
		}
		if !result.Verified {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"verified": false,
				"error":    "Invalid or expired code",
				"code":     services.CodeOTPVerifyFailed,
			})
		}

		if p := result.Participant; p != nil {
			if err := middleware.SetSessionCookie(c, d.Sessions, p.ID, p.EmailCI, secureCookies(d)); err != nil {
				log.WithError(err).Warn("failed to issue session after verification")
			}
		}
		return c.JSON(fiber.Map{
			"verified": true,
			"message":  "Email verified successfully",
		})
	}
}

func currentSession(c *fiber.Ctx) error {
	claims := middleware.Session(c)
	if claims == nil {
		return services.NewInvalidSessionError(nil)
	}
	return c.JSON(fiber.Map{
		"participantId": claims.Subject,
		"email":         claims.Email,
	})
}
