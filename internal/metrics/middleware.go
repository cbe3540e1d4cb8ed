package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Middleware returns an Echo middleware that records request latency per
// route into the collector.
func Middleware(collector Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			collector.RecordHTTPRequest(
				c.Request().Method,
				c.Path(),
				c.Response().Status,
				time.Since(start),
			)
			return err
		}
	}
}
