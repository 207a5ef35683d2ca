package models

import "time"

// Metric is a single named diagnostic value.
type Metric struct {
	Value interface{} `json:"value"` // Collected value of the metric.
	Unit  string      `json:"unit"`  // Unit of the metric (e.g., "percentage", "count").
}

// AgentHealth is the periodic diagnostics report published by the agent.
type AgentHealth struct {
	EntityID  string            `json:"entity_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metrics   map[string]Metric `json:"metrics"`
	Schedule  RefreshSchedule   `json:"schedule"`
}

// DiagnosticsConfig toggles the individual diagnostic collectors.
type DiagnosticsConfig struct {
	MonitorCPU        bool
	MonitorMemory     bool
	MonitorGoroutines bool
	MonitorUptime     bool
}
