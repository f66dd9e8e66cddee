package healthcheck

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/oarkflow/noteforge"
)

// HealthChecker defines a function to check liveness or readiness of the application
type HealthChecker func(*fiber.Ctx) bool

// HealthCheckerHandler defines a function that turns a HealthChecker into a fiber.Handler
type HealthCheckerHandler func(HealthChecker) fiber.Handler

func healthCheckerHandler(checker HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if checker == nil {
			return router.Next(c)
		}

		if checker(c) {
			return c.SendStatus(fiber.StatusOK)
		}

		return c.SendStatus(fiber.StatusServiceUnavailable)
	}
}

func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)

	isLiveHandler := healthCheckerHandler(cfg.LivenessProbe)
	isReadyHandler := healthCheckerHandler(cfg.ReadinessProbe)

	return func(c *fiber.Ctx) error {
		// Don't execute middleware if Next returns true
		if cfg.Next != nil && cfg.Next(c) {
			return router.Next(c)
		}

		if c.Method() != fiber.MethodGet {
			return router.Next(c)
		}

		// The upstream fiber middleware computes checkPath relative to
		// c.Route().Path so it still works when sub-mounted under a group
		// prefix. This router has no such grouping for global middleware
		// (Use is always process-wide, registered once against fiber's own
		// catch-all "/*"), so c.Route().Path carries no useful prefix here;
		// comparing the full request path directly is the equivalent
		// behavior for a middleware that is always mounted at the root.
		checkPath := c.Path()
		checkPathTrimmed := checkPath
		if !c.App().Config().StrictRouting {
			checkPathTrimmed = utils.TrimRight(checkPath, '/')
		}
		switch {
		case checkPath == cfg.ReadinessEndpoint || checkPathTrimmed == cfg.ReadinessEndpoint:
			return isReadyHandler(c)
		case checkPath == cfg.LivenessEndpoint || checkPathTrimmed == cfg.LivenessEndpoint:
			return isLiveHandler(c)
		}

		return router.Next(c)
	}
}
