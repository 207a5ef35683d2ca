package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/benmeehan/weather-display-agent/internal/constants"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// CommandService listens for entity commands from the host and routes
// them to the refresher. The command set is closed: "refresh" triggers
// an immediate weather update, everything else is answered with a
// not-supported response.
type CommandService struct {
	// Configuration Fields
	topicPrefix string
	entityID    string
	qos         int

	// Dependencies
	refresher  Refresher
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	// Internal state management
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewCommandService initializes a new CommandService with given parameters.
func NewCommandService(topicPrefix, entityID string, qos int, refresher Refresher,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *CommandService {

	return &CommandService{
		topicPrefix: topicPrefix,
		entityID:    entityID,
		qos:         qos,
		refresher:   refresher,
		mqttClient:  mqttClient,
		logger:      logger,
	}
}

// Start subscribes to the entity command topic.
func (cs *CommandService) Start() error {
	cs.mu.Lock()
	if cs.stopChan != nil {
		cs.mu.Unlock()
		cs.logger.Warn().Msg("CommandService is already running")
		return errors.New("command service is already running")
	}
	cs.stopChan = make(chan struct{})
	cs.mu.Unlock()

	topic := cs.commandTopic()
	if err := cs.mqttClient.Subscribe(topic, byte(cs.qos), cs.HandleCommand); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to command topic")
		cs.mu.Lock()
		cs.stopChan = nil
		cs.mu.Unlock()
		return err
	}

	cs.logger.Info().Str("topic", topic).Msg("CommandService started successfully")
	return nil
}

// Stop unsubscribes from the command topic and waits for in-flight
// commands to finish.
func (cs *CommandService) Stop() error {
	cs.mu.Lock()
	if cs.stopChan == nil {
		cs.mu.Unlock()
		cs.logger.Warn().Msg("CommandService is not running")
		return errors.New("command service is not running")
	}
	close(cs.stopChan)
	cs.mu.Unlock()

	cs.wg.Wait()

	topic := cs.commandTopic()
	err := cs.mqttClient.Unsubscribe(topic)

	cs.mu.Lock()
	cs.stopChan = nil
	cs.mu.Unlock()

	if err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from command topic")
		return err
	}

	cs.logger.Info().Msg("CommandService stopped successfully")
	return nil
}

// HandleCommand parses an incoming command request and dispatches it.
// Malformed payloads are logged and dropped without a response.
func (cs *CommandService) HandleCommand(client MQTT.Client, msg MQTT.Message) {
	cs.mu.Lock()
	if cs.stopChan == nil {
		cs.mu.Unlock()
		cs.logger.Warn().Msg("Received command but service is stopping, ignoring command")
		return
	}
	select {
	case <-cs.stopChan:
		cs.mu.Unlock()
		cs.logger.Warn().Msg("Received command but service is stopping, ignoring command")
		return
	default:
		cs.wg.Add(1)
		cs.mu.Unlock()
	}
	defer cs.wg.Done()

	var request models.CommandRequest
	if err := json.Unmarshal(msg.Payload(), &request); err != nil {
		cs.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to parse command request")
		return
	}

	command := models.ParseCommand(request.Command)
	cs.logger.Info().Str("command", command.Name).Msg("Received command from host")

	switch command.Kind {
	case models.CommandRefresh:
		// Commands already in flight finish even if the agent is
		// shutting down, so the cycle is not tied to a service context.
		cs.refresher.Refresh(context.Background())
		cs.publishResponse(command.Name, constants.CommandStatusSuccess)
	default:
		cs.logger.Warn().Str("command", command.Name).Msg("Unsupported command")
		cs.publishResponse(command.Name, constants.CommandStatusNotSupported)
	}
}

// publishResponse reports the command outcome back to the host.
func (cs *CommandService) publishResponse(command, status string) {
	response := models.CommandResponse{Command: command, Status: status}
	payload, err := json.Marshal(response)
	if err != nil {
		cs.logger.Error().Err(err).Msg("Failed to serialize command response")
		return
	}

	topic := cs.commandTopic() + "/response"
	if err := cs.mqttClient.Publish(topic, byte(cs.qos), false, payload); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish command response")
		return
	}

	cs.logger.Info().Str("topic", topic).Str("status", status).Msg("Command response published")
}

func (cs *CommandService) commandTopic() string {
	return cs.topicPrefix + "/entities/" + cs.entityID + "/commands"
}
