package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/diagnostics"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/utils"
	"github.com/benmeehan/weather-display-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// ScheduleSource exposes the refresh scheduler's state for health reports.
type ScheduleSource interface {
	Schedule() models.RefreshSchedule
}

// DiagnosticsService periodically collects agent health metrics and
// publishes them over MQTT together with the refresh schedule state.
type DiagnosticsService struct {
	pubTopic          string
	entityID          string
	diagnosticsConfig *models.DiagnosticsConfig
	interval          time.Duration
	timeout           time.Duration
	qos               int
	scheduleSource    ScheduleSource
	mqttClient        mqtt.MQTTClient
	logger            zerolog.Logger
	registry          *diagnostics.Registry
	workerPool        *utils.WorkerPool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDiagnosticsService initializes and returns a new instance of DiagnosticsService.
func NewDiagnosticsService(
	pubTopic, entityID string,
	config *models.DiagnosticsConfig,
	interval, timeout time.Duration,
	qos int,
	scheduleSource ScheduleSource,
	mqttClient mqtt.MQTTClient,
	logger zerolog.Logger,
) *DiagnosticsService {
	service := &DiagnosticsService{
		pubTopic:          pubTopic,
		entityID:          entityID,
		diagnosticsConfig: config,
		interval:          interval,
		timeout:           timeout,
		qos:               qos,
		scheduleSource:    scheduleSource,
		mqttClient:        mqttClient,
		logger:            logger,
		registry:          diagnostics.NewRegistry(),
		workerPool:        utils.NewWorkerPool(4),
	}

	// Register default collectors
	service.registerDefaultCollectors()

	return service
}

// registerDefaultCollectors registers the default health collectors.
func (d *DiagnosticsService) registerDefaultCollectors() {
	d.registry.Register(&diagnostics.CPUCollector{Logger: d.logger})
	d.registry.Register(&diagnostics.MemoryCollector{Logger: d.logger})
	d.registry.Register(&diagnostics.GoroutineCollector{Logger: d.logger})
	d.registry.Register(&diagnostics.UptimeCollector{StartedAt: time.Now(), Logger: d.logger})
}

// Start initiates periodic health collection and publishing.
func (d *DiagnosticsService) Start() error {
	if d.ctx != nil {
		d.logger.Warn().Msg("DiagnosticsService is already running")
		return errors.New("diagnostics service is already running")
	}

	if err := d.validateConfig(); err != nil {
		d.logger.Error().Err(err).Msg("Invalid diagnostics configuration")
		return err
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.wg.Add(1)
	go d.runCollectionLoop()

	d.logger.Info().Str("topic", d.pubTopic).Dur("interval", d.interval).Msg("DiagnosticsService started successfully")
	return nil
}

// validateConfig checks that at least one collector is enabled.
func (d *DiagnosticsService) validateConfig() error {
	c := d.diagnosticsConfig
	if c == nil {
		return errors.New("diagnostics configuration is missing")
	}
	if !c.MonitorCPU && !c.MonitorMemory && !c.MonitorGoroutines && !c.MonitorUptime {
		return errors.New("no health metrics enabled in configuration")
	}
	return nil
}

// runCollectionLoop runs the main health collection and publishing loop.
func (d *DiagnosticsService) runCollectionLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			health := d.collectHealth()
			if err := d.publishHealth(health); err != nil {
				d.logger.Error().Err(err).Msg("Failed to publish health report")
			}
		case <-d.ctx.Done():
			d.logger.Info().Msg("Stopping health collection")
			return
		}
	}
}

// collectHealth gathers all enabled metrics concurrently.
func (d *DiagnosticsService) collectHealth() *models.AgentHealth {
	health := &models.AgentHealth{
		EntityID:  d.entityID,
		Timestamp: time.Now().UTC(),
		Metrics:   make(map[string]models.Metric),
		Schedule:  d.scheduleSource.Schedule(),
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	var wg sync.WaitGroup
	healthMutex := &sync.Mutex{}

	for name, collector := range d.registry.GetCollectors() {
		if collector.IsEnabled(d.diagnosticsConfig) {
			wg.Add(1)
			d.workerPool.Submit(func() {
				defer wg.Done()
				collectedValue := collector.Collect(ctx)

				healthMutex.Lock()
				defer healthMutex.Unlock()

				health.Metrics[name] = models.Metric{
					Value: collectedValue,
					Unit:  collector.Unit(),
				}
			})
		}
	}

	wg.Wait()
	d.logger.Debug().Interface("health", health).Msg("Health metrics collected successfully")
	return health
}

// publishHealth sends the collected health report via MQTT.
func (d *DiagnosticsService) publishHealth(health *models.AgentHealth) error {
	healthData, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to serialize health report: %w", err)
	}

	retries := 3
	for i := 0; i < retries; i++ {
		if err := d.mqttClient.Publish(d.pubTopic, byte(d.qos), false, healthData); err == nil {
			d.logger.Debug().Msg("Health report published successfully")
			return nil
		} else {
			d.logger.Warn().Err(err).Int("retry", i+1).Msg("Retrying to publish health report...")
		}
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	return fmt.Errorf("failed to publish health report after %d retries", retries)
}

// Stop gracefully stops the diagnostics service.
func (d *DiagnosticsService) Stop() error {
	if d.ctx == nil {
		d.logger.Warn().Msg("DiagnosticsService is not running")
		return errors.New("diagnostics service is not running")
	}

	d.cancel()
	d.wg.Wait()
	d.workerPool.Shutdown()
	d.ctx = nil
	d.cancel = nil
	d.logger.Info().Msg("DiagnosticsService stopped successfully")
	return nil
}
