package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	infraPrometheus "github.com/sifan077/paylink/internal/infra/prometheus"
)

// Metrics records request counts and latency keyed by the matched route
// pattern, so link ids never become label values.
func Metrics(m *infraPrometheus.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if err != nil && asFiberError(err, &fe) {
			status = fe.Code
		}

		route := c.Route().Path
		if route == "/" && c.Path() != "/" {
			route = "unmatched"
		}

		m.ObserveHTTP(c.Method(), route, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}

func asFiberError(err error, target **fiber.Error) bool {
	return errors.As(err, target)
}
