package diagnostics

import (
	"context"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/rs/zerolog"
)

// UptimeCollector reports how long the agent process has been running.
type UptimeCollector struct {
	StartedAt time.Time
	Logger    zerolog.Logger
}

func (u *UptimeCollector) Name() string {
	return "uptime"
}

func (u *UptimeCollector) Collect(ctx context.Context) interface{} {
	seconds := time.Since(u.StartedAt).Seconds()
	u.Logger.Debug().Float64("uptime_seconds", seconds).Msg("Uptime collected")
	return &seconds
}

func (u *UptimeCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	if !config.MonitorUptime {
		u.Logger.Debug().Msg("Uptime monitoring is disabled in configuration")
	}
	return config.MonitorUptime
}

func (u *UptimeCollector) Unit() string {
	return "seconds"
}

func (u *UptimeCollector) Description() string {
	return "Seconds elapsed since the agent process started."
}
