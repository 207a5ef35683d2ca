package diagnostics

import (
	"context"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"
)

// MemoryCollector collects memory usage metrics.
type MemoryCollector struct {
	Logger zerolog.Logger
}

func (m *MemoryCollector) Name() string {
	return "memory"
}

func (m *MemoryCollector) Collect(ctx context.Context) interface{} {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to get memory usage")
		return nil
	}

	m.Logger.Debug().Float64("memory_usage", vmStat.UsedPercent).Msg("Memory usage collected successfully")
	return &vmStat.UsedPercent
}

func (m *MemoryCollector) IsEnabled(config *models.DiagnosticsConfig) bool {
	if !config.MonitorMemory {
		m.Logger.Debug().Msg("Memory monitoring is disabled in configuration")
	}
	return config.MonitorMemory
}

func (m *MemoryCollector) Unit() string {
	return "percentage"
}

func (m *MemoryCollector) Description() string {
	return "Percentage of physical memory in use."
}
