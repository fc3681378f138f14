package handlers

import (
	"errors"
	"strconv"

	"gemstore/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders errors returned by handlers and middleware. Domain
// errors keep their message; anything else is logged and reported as a
// generic 500.
func ErrorHandler(logger logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := apperrors.As(err); ok {
			body := fiber.Map{"message": appErr.Error()}
			if appErr.Field != "" {
				body["field"] = appErr.Field
			}
			if len(appErr.Fields) > 0 {
				body["errors"] = appErr.Fields
			}
			return c.Status(apperrors.Status(appErr)).JSON(body)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		entry := logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		})
		if id, ok := c.Locals("requestid").(string); ok {
			entry = entry.WithField("request_id", id)
		}
		entry.Error("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal Server Error",
		})
	}
}

// parseID reads a positive numeric route parameter.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(name, "Invalid ID")
	}
	return uint(id), nil
}

// parseBody decodes the JSON request body into out.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.Validation("body", "Invalid request body")
	}
	return nil
}
