package middleware

import (
	"errors"

	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorHandler maps errors returned by handlers onto {error, code}
// responses. Internal details are only exposed in development.
func ErrorHandler(development bool) fiber.ErrorHandler {
	log := logrus.WithField("component", "http")
	return func(c *fiber.Ctx, err error) error {
		reqID, _ := c.Locals("requestid").(string)

		if appErr, ok := services.AsAppError(err); ok {
			if appErr.Status >= fiber.StatusInternalServerError {
				log.WithError(err).WithField("request_id", reqID).Error("request failed")
			}
			return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr.Message, Code: appErr.Code})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := services.CodeValidation
			switch fe.Code {
			case fiber.StatusNotFound:
				code = services.CodeNotFound
			case fiber.StatusTooManyRequests:
				code = services.CodeRateLimited
			case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
				code = services.CodeValidation
			default:
				if fe.Code >= fiber.StatusInternalServerError {
					code = services.CodeInternal
				}
			}
			return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Code: code})
		}

		log.WithError(err).WithField("request_id", reqID).Error("unhandled error")
		msg := "Internal server error"
		if development {
			msg = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg, Code: services.CodeInternal})
	}
}
