package runner

import (
	"log/slog"

	"web/polaris/config"
)

// OptionsFromConfig maps the runner and map sections of cfg.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		MaxSessions:     cfg.Runner.MaxSessions,
		SessionTTL:      cfg.Runner.SessionTTL,
		CleanupInterval: cfg.Runner.CleanupInterval,
		Defaults: Defaults{
			Zoom:         cfg.Map.Zoom,
			Width:        cfg.Map.Width,
			Height:       cfg.Map.Height,
			GridSize:     cfg.Map.GridSize,
			Density:      cfg.Map.Density,
			ConfirmDelay: cfg.Map.ConfirmDelay,
			Low:          cfg.Map.Low,
			Medium:       cfg.Map.Medium,
		},
		Logger: logger,
	}
}
