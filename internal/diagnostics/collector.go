package diagnostics

import (
	"context"

	"github.com/benmeehan/weather-display-agent/internal/models"
)

// Collector defines the interface for collecting a specific health metric.
type Collector interface {
	Name() string                                    // Name of the metric (e.g., "cpu", "memory")
	Collect(ctx context.Context) interface{}         // Collect the metric data
	IsEnabled(config *models.DiagnosticsConfig) bool // Check if the metric is enabled in the config
	Unit() string                                    // Unit of the metric (e.g., "percentage", "count")
	Description() string                             // Description of the metric
}
