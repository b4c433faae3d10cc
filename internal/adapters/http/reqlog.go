package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type loggerKey struct{}

// RequestIDLogMiddleware stores a request-scoped logger in the user context,
// tagged with the request id and, when present, the caller's user id.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		logger := slog.Default().With("request_id", rid)
		if user := c.Get(UserHeader); user != "" {
			logger = logger.With("user_id", user)
		}
		c.SetUserContext(context.WithValue(c.UserContext(), loggerKey{}, logger))
		return c.Next()
	}
}

// LoggerFromCtx returns the request logger, or the default logger outside a
// request.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
