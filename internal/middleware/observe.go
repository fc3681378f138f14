package middleware

import (
	"strconv"
	"time"

	"gemstore/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// settle runs the app error handler for an error returned down the chain so
// the final status is known here.
func settle(c *fiber.Ctx, err error) {
	if err == nil {
		return
	}
	if herr := c.App().ErrorHandler(c, err); herr != nil {
		_ = c.SendStatus(fiber.StatusInternalServerError)
	}
}

// RequestLogger writes one access log entry per request.
func RequestLogger(logger logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		settle(c, err)

		status := c.Response().StatusCode()
		entry := logger.WithFields(logrus.Fields{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
		})
		if id, ok := c.Locals("requestid").(string); ok {
			entry = entry.WithField("request_id", id)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("request failed")
		case status >= fiber.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
		return nil
	}
}

// Metrics records request counts and latency by route template.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		done := metrics.RequestStarted()
		defer done()

		start := time.Now()
		err := c.Next()
		settle(c, err)

		metrics.ObserveRequest(
			c.Method(),
			c.Route().Path,
			strconv.Itoa(c.Response().StatusCode()),
			time.Since(start).Seconds(),
		)
		return nil
	}
}
