package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/internal/service_registry"
	"github.com/benmeehan/weather-display-agent/internal/setup"
	"github.com/benmeehan/weather-display-agent/internal/store"
	"github.com/benmeehan/weather-display-agent/internal/utils"
	"github.com/benmeehan/weather-display-agent/internal/weather"
	"github.com/benmeehan/weather-display-agent/pkg/file"
	"github.com/benmeehan/weather-display-agent/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	// Optional .env for local runs, ignored when absent
	_ = godotenv.Load()

	logger := newLogger()

	rootCmd := &cobra.Command{
		Use:   "weather-agent",
		Short: "Weather agent that keeps a remote display updated with current conditions",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the configuration file")
	rootCmd.AddCommand(newServeCommand(logger), newSetupCommand(logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger sets up structured logging with JSON output.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// loadConfig reads the YAML configuration and applies environment
// overrides so secrets stay out of the config file.
func loadConfig(fileClient file.FileOperations) (*utils.Config, error) {
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		return nil, err
	}

	if password := os.Getenv("MQTT_PASSWORD"); password != "" {
		config.MQTT.Password = password
	}
	if key := os.Getenv("MAPS_API_KEY"); key != "" {
		config.Geocoder.MapsAPIKey = key
	}

	return config, nil
}

func newServeCommand(logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(logger)
		},
	}
}

func runAgent(logger zerolog.Logger) error {
	fileClient := file.NewFileService()

	config, err := loadConfig(fileClient)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	locationStore := store.NewLocationStore(config.Settings.File, fileClient, logger)
	if err := locationStore.Load(); err != nil {
		logger.Error().Err(err).Msg("Failed to load settings")
		return err
	}
	loc, ok := locationStore.Get()
	if !ok {
		logger.Error().Msg("No location configured, run the setup command first")
		return errors.New("agent is not configured")
	}
	if config.Entity.Name != "" {
		loc.DisplayName = config.Entity.Name
	}

	entityID := config.Entity.ID
	if entityID == "" {
		entityID = defaultEntityID(loc)
	}

	// Generate a unique MQTT Client ID by appending a UUID
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "weather-agent"
	}
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient, logger)
	if err := mqttClient.Initialize(config.MQTT.Broker, config.MQTT.ClientID,
		config.MQTT.CACertificate, config.MQTT.Username, config.MQTT.Password); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize MQTT connection")
		return err
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, fileClient, logger)
	if err := serviceRegistry.RegisterServices(config, entityID, loc); err != nil {
		logger.Error().Err(err).Msg("Failed to register services")
		return err
	}
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to start services")
		return err
	}
	logger.Info().
		Str("entity_id", entityID).
		Str("location", loc.DisplayName).
		Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Some services failed to stop cleanly")
	}
	mqttClient.Disconnect(250)
	return nil
}

func newSetupCommand(logger zerolog.Logger) *cobra.Command {
	var unit string

	cmd := &cobra.Command{
		Use:   "setup <location>",
		Short: "Resolve a location query and save it as the display location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileClient := file.NewFileService()

			config, err := loadConfig(fileClient)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to load configuration")
				return err
			}

			openMeteo := weather.NewOpenMeteoClient(
				config.Weather.ForecastURL,
				config.Weather.GeocodingURL,
				time.Duration(config.Weather.ForecastTimeout)*time.Second,
				time.Duration(config.Weather.GeocodeTimeout)*time.Second,
				logger,
			)

			var resolver weather.LocationResolver = openMeteo
			if config.Geocoder.Provider == "google" {
				googleResolver, err := weather.NewGoogleResolver(config.Geocoder.MapsAPIKey, logger)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to create Google geocoding client")
					return err
				}
				resolver = googleResolver
			}

			locationStore := store.NewLocationStore(config.Settings.File, fileClient, logger)
			flow := setup.NewFlow(resolver, openMeteo, locationStore, logger)

			loc, err := flow.Run(cmd.Context(), strings.Join(args, " "), unit)
			if err != nil {
				return err
			}

			cmd.Printf("Location saved: %s (%.4f, %.4f)\n", loc.DisplayName, loc.Latitude, loc.Longitude)
			return nil
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "fahrenheit", "temperature unit: fahrenheit or celsius")

	return cmd
}

// defaultEntityID derives a stable entity ID from the configured
// coordinates so the host sees the same entity across restarts.
func defaultEntityID(loc models.Location) string {
	id := fmt.Sprintf("weather-%.4f-%.4f", loc.Latitude, loc.Longitude)
	return strings.ReplaceAll(id, ".", "-")
}
