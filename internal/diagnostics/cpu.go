package diagnostics

import (
	"context"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
)

// CPUCollector collects CPU usage metrics.
type CPUCollector struct {
	Logger zerolog.Logger
}

func (c *CPUCollector) Name() string {
	return "cpu"
}

func (c *CPUCollector) Collect(ctx context.Context) interface{} {
	cpuPercentages, err := cpu.Percent(0, false)
	if err != nil {
		c.Logger.Error().Err(err).Msg("Failed to get CPU usage")
		return nil
	}

	if len(cpuPercentages) == 0 {
		c.Logger.Warn().Msg("CPU usage data is empty")
		return nil
	}

	c.Logger.Debug().Float64("cpu_usage", cpuPercentages[0]).Msg("CPU usage collected successfully")
	return &cpuPercentages[0]
}

func (c *CPUCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	if !config.MonitorCPU {
		c.Logger.Debug().Msg("CPU monitoring is disabled in configuration")
	}
	return config.MonitorCPU
}

func (c *CPUCollector) Unit() string {
	return "percentage"
}

func (c *CPUCollector) Description() string {
	return "Percentage of CPU utilization across all cores."
}
