// Package logging configures the process-wide zerolog logger and the echo
// middleware that hands every request its own child logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup configures the global logger.  Unknown levels fall back to info.
// When pretty is true output is human readable (local development).
func Setup(service, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	zlog.Logger = zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	// zerolog.Ctx falls back to this when a context carries no logger
	zerolog.DefaultContextLogger = &zlog.Logger
	return zlog.Logger
}

// RequestLogger stores a child logger tagged with the request id, method and
// route in the request context, then logs one line per completed request.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}
			l := base.With().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("route", c.Path()).
				Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			ev := l.Info()
			if c.Response().Status >= 500 {
				ev = l.Error().Err(err)
			}
			ev.Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
