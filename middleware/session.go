package middleware

import (
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

const sessionLocalsKey = "session"

// SessionMiddleware attaches the visitor's session claims, if the cookie
// carries a valid token. Requests without a session pass through.
func SessionMiddleware(sessions *services.SessionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := c.Cookies(services.SessionCookieName); token != "" {
			if claims, err := sessions.Parse(token); err == nil {
				c.Locals(sessionLocalsKey, claims)
			}
		}
		return c.Next()
	}
}

// Session returns the claims attached by SessionMiddleware, or nil.
func Session(c *fiber.Ctx) *services.SessionClaims {
	claims, _ := c.Locals(sessionLocalsKey).(*services.SessionClaims)
	return claims
}

// SetSessionCookie issues a session for the participant on the response.
func SetSessionCookie(c *fiber.Ctx, sessions *services.SessionManager, participantID, email string, secure bool) error {
	token, err := sessions.Issue(participantID, email)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessions.TTL.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
