package healthcheck

import "github.com/gofiber/fiber/v2"

// Config defines the config for the healthcheck middleware.
type Config struct {
	// Next defines a function to skip this middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// LivenessProbe reports whether the app is alive. With a nil probe the
	// liveness endpoint is not answered here; the request continues down the
	// chain.
	//
	// Optional. Default: nil
	LivenessProbe HealthChecker

	// LivenessEndpoint is the route path the liveness probe answers on.
	//
	// Optional. Default: "/livez"
	LivenessEndpoint string

	// ReadinessProbe reports whether the app is ready to serve traffic.
	//
	// Optional. Default: nil
	ReadinessProbe HealthChecker

	// ReadinessEndpoint is the route path the readiness probe answers on.
	//
	// Optional. Default: "/readyz"
	ReadinessEndpoint string
}

var configDefaultValues = Config{
	LivenessEndpoint:  "/livez",
	ReadinessEndpoint: "/readyz",
}

func defaultConfig(config ...Config) Config {
	if len(config) < 1 {
		return configDefaultValues
	}
	cfg := config[0]
	if cfg.LivenessEndpoint == "" {
		cfg.LivenessEndpoint = configDefaultValues.LivenessEndpoint
	}
	if cfg.ReadinessEndpoint == "" {
		cfg.ReadinessEndpoint = configDefaultValues.ReadinessEndpoint
	}
	return cfg
}
