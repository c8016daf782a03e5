package observability

import (
	"github.com/danmuck/xformctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime profile and returns a component logger.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	return log.Logger.With().Str("app", app).Logger()
}

// Component derives a child logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
