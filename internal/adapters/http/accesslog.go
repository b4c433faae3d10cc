package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware writes one structured line per request. Paths in skip
// (scrapes, probes) are not logged.
func AccessLogMiddleware(skip ...string) fiber.Handler {
	quiet := make(map[string]bool, len(skip))
	for _, p := range skip {
		quiet[p] = true
	}

	return func(c *fiber.Ctx) error {
		if quiet[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		method, path := c.Method(), c.Path()
		err := c.Next()
		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("request_id", c.Get(fiber.HeaderXRequestID, "unknown")),
		}
		if user := c.Get(UserHeader); user != "" {
			attrs = append(attrs, slog.String("user_id", user))
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		slog.LogAttrs(c.Context(), level, method+" "+path, attrs...)
		return err
	}
}
