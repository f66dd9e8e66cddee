package requestid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Config defines the config for the requestid middleware.
type Config struct {
	// Next defines a function to skip this middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Header is the header key used to store/read the request ID.
	//
	// Optional. Default: "X-Request-ID"
	Header string

	// Generator produces a new request ID when the incoming request has none.
	//
	// Optional. Default: uuid.NewString
	Generator func() string

	// ContextKey is the key used to store the request ID in c.Locals.
	//
	// Optional. Default: "requestid"
	ContextKey interface{}
}

var configDefaultValues = Config{
	Header:     fiber.HeaderXRequestID,
	Generator:  uuid.NewString,
	ContextKey: "requestid",
}

// configDefault fills in zero-valued fields of the first provided Config
// (if any) with the package defaults, the same override-only-what-you-set
// pattern every middleware in this package follows.
func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return configDefaultValues
	}
	cfg := config[0]
	if cfg.Header == "" {
		cfg.Header = configDefaultValues.Header
	}
	if cfg.Generator == nil {
		cfg.Generator = configDefaultValues.Generator
	}
	if cfg.ContextKey == nil {
		cfg.ContextKey = configDefaultValues.ContextKey
	}
	return cfg
}
