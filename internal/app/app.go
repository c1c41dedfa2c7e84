package app

import (
	"time"

	"github.com/rs/zerolog"

	"ai-speech-blockifier/internal/config"
	"ai-speech-blockifier/internal/observability/logging"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
}

// New constructs a new Application from the provided configuration and
// initializes the global logger from it.
func New(cfg *config.Configuration) *Application {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg: cfg,
		Logger: logging.Logger().With().
			Str("service", "ai-speech-blockifier").
			Str("component", "application").
			Logger(),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Str("provider", cfg.STT.Provider).
		Msg("Speech blockifier application created")
	return a
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("Speech blockifier starting")
	return nil
}

// Uptime returns the time since Start. Zero before Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().
		Str("method", "Shutdown").
		Dur("uptime", a.Uptime()).
		Msg("Speech blockifier shutting down")
}
