package diagnostics

import (
	"context"
	"runtime"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/rs/zerolog"
)

// GoroutineCollector collects the number of active goroutines.
type GoroutineCollector struct {
	Logger zerolog.Logger
}

// Name returns the identifier for the goroutine collector.
func (g *GoroutineCollector) Name() string {
	return "goroutines"
}

// Collect retrieves the number of active goroutines.
func (g *GoroutineCollector) Collect(ctx context.Context) interface{} {
	n := float64(runtime.NumGoroutine())
	g.Logger.Debug().Float64("goroutines", n).Msg("Goroutine count collected")
	return &n
}

// IsEnabled checks if goroutine monitoring is enabled in the configuration.
func (g *GoroutineCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	if !config.MonitorGoroutines {
		g.Logger.Debug().Msg("Goroutine monitoring is disabled in configuration")
	}
	return config.MonitorGoroutines
}

// Unit specifies the unit for the goroutine count metric.
func (g *GoroutineCollector) Unit() string {
	return "count"
}

// Description provides a summary of the goroutine metric collected.
func (g *GoroutineCollector) Description() string {
	return "Number of active goroutines in the runtime."
}
