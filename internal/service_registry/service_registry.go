package service_registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/engine"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/services"
	"github.com/benmeehan/weather-display-agent/internal/sink"
	"github.com/benmeehan/weather-display-agent/internal/utils"
	"github.com/benmeehan/weather-display-agent/internal/weather"
	"github.com/benmeehan/weather-display-agent/pkg/file"
	"github.com/benmeehan/weather-display-agent/pkg/icons"
	"github.com/benmeehan/weather-display-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Service is the interface for all plug-in services
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	fileClient  file.FileOperations
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, fileClient file.FileOperations, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]Service),
		mqttClient: mqttClient,
		fileClient: fileClient,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
// The presentation sink always runs first: every other service publishes through
// the topics it manages.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, entityID string, loc models.Location) error {
	// Components shared across services
	presentationSink := sink.NewMQTTSink(config.MQTT.TopicPrefix, config.MQTT.QOS, sr.mqttClient, sr.Logger)
	iconEncoder := icons.NewEncoder(sr.Logger)
	reconciler := engine.NewEngine(presentationSink, entityID, loc.DisplayName, iconEncoder, sr.Logger)

	provider := weather.NewOpenMeteoClient(
		config.Weather.ForecastURL,
		config.Weather.GeocodingURL,
		time.Duration(config.Weather.ForecastTimeout)*time.Second,
		time.Duration(config.Weather.GeocodeTimeout)*time.Second,
		sr.Logger,
	)

	// The weather service is built even when scheduled updates are disabled
	// so that host refresh commands still reach the engine.
	weatherService := services.NewWeatherService(
		loc,
		provider,
		reconciler,
		presentationSink,
		entityID,
		time.Duration(config.Services.Updates.FirstTickDelay)*time.Second,
		sr.Logger,
	)

	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "presentation",
			enabled: true,
			constructor: func() (Service, error) {
				return presentationSink, nil
			},
		},
		{
			name:    "updates",
			enabled: config.Services.Updates.Enabled,
			constructor: func() (Service, error) {
				return weatherService, nil
			},
		},
		{
			name:    "commands",
			enabled: config.Services.Commands.Enabled,
			constructor: func() (Service, error) {
				return services.NewCommandService(
					config.MQTT.TopicPrefix,
					entityID,
					config.MQTT.QOS,
					weatherService,
					sr.mqttClient,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "diagnostics",
			enabled: config.Services.Diagnostics.Enabled,
			constructor: func() (Service, error) {
				diagnosticsConfig := &models.DiagnosticsConfig{
					MonitorCPU:        config.Services.Diagnostics.MonitorCPU,
					MonitorMemory:     config.Services.Diagnostics.MonitorMemory,
					MonitorGoroutines: config.Services.Diagnostics.MonitorGoroutines,
					MonitorUptime:     config.Services.Diagnostics.MonitorUptime,
				}
				return services.NewDiagnosticsService(
					config.MQTT.TopicPrefix+"/device/health",
					entityID,
					diagnosticsConfig,
					time.Duration(config.Services.Diagnostics.Interval)*time.Second,
					time.Duration(config.Services.Diagnostics.Timeout)*time.Second,
					config.MQTT.QOS,
					weatherService,
					sr.mqttClient,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
