package sink

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/benmeehan/weather-display-agent/internal/constants"
	"github.com/benmeehan/weather-display-agent/internal/models"
	"github.com/benmeehan/weather-display-agent/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// MQTTSink implements PresentationSink and HostEvents over a shared MQTT
// session. The host drives the subscription set through subscribe and
// unsubscribe events on the control topics.
type MQTTSink struct {
	topicPrefix string
	qos         int
	mqttClient  mqtt.MQTTClient
	logger      zerolog.Logger

	subscribers cmap.ConcurrentMap[string, bool]

	mu                   sync.Mutex
	subscriptionHandlers []SubscriptionHandler
	standbyHandlers      []StandbyHandler
	started              bool
}

// NewMQTTSink initializes a new MQTTSink instance.
func NewMQTTSink(topicPrefix string, qos int, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *MQTTSink {
	return &MQTTSink{
		topicPrefix: topicPrefix,
		qos:         qos,
		mqttClient:  mqttClient,
		logger:      logger,
		subscribers: cmap.New[bool](),
	}
}

// OnSubscriptionChange registers a handler for subscription events.
func (s *MQTTSink) OnSubscriptionChange(handler SubscriptionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptionHandlers = append(s.subscriptionHandlers, handler)
}

// OnStandbyChange registers a handler for standby events.
func (s *MQTTSink) OnStandbyChange(handler StandbyHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standbyHandlers = append(s.standbyHandlers, handler)
}

// Start subscribes to the host control topics.
func (s *MQTTSink) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn().Msg("MQTTSink is already running")
		return errors.New("presentation sink is already running")
	}
	s.started = true
	s.mu.Unlock()

	subscriptions := []struct {
		topic   string
		handler MQTT.MessageHandler
	}{
		{s.topicPrefix + "/entities/subscribe", s.handleSubscribe},
		{s.topicPrefix + "/entities/unsubscribe", s.handleUnsubscribe},
		{s.topicPrefix + "/standby", s.handleStandby},
	}

	for _, sub := range subscriptions {
		if err := s.mqttClient.Subscribe(sub.topic, byte(s.qos), sub.handler); err != nil {
			s.logger.Error().Err(err).Str("topic", sub.topic).Msg("Failed to subscribe to control topic")
			return err
		}
		s.logger.Info().Str("topic", sub.topic).Msg("Subscribed to control topic")
	}

	if err := s.PublishDeviceState(constants.DeviceStateConnected); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to announce device state")
	}

	return nil
}

// Stop unsubscribes from the host control topics.
func (s *MQTTSink) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Warn().Msg("MQTTSink is not running")
		return errors.New("presentation sink is not running")
	}
	s.started = false
	s.mu.Unlock()

	if err := s.PublishDeviceState(constants.DeviceStateDisconnected); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to announce device state")
	}

	err := s.mqttClient.Unsubscribe(
		s.topicPrefix+"/entities/subscribe",
		s.topicPrefix+"/entities/unsubscribe",
		s.topicPrefix+"/standby",
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to unsubscribe from control topics")
		return err
	}

	s.logger.Info().Msg("MQTTSink stopped successfully")
	return nil
}

// IsSubscribed reports whether the host subscribed to the entity.
func (s *MQTTSink) IsSubscribed(entityID string) bool {
	return s.subscribers.Has(entityID)
}

// PushAttributes publishes the attribute map for one entity.
func (s *MQTTSink) PushAttributes(entityID string, attrs map[string]string) error {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return s.mqttClient.Publish(s.attributesTopic(entityID), byte(s.qos), false, payload)
}

// PublishDeviceState reports the agent lifecycle state. The message is
// retained so a host connecting later still sees the last state.
func (s *MQTTSink) PublishDeviceState(state string) error {
	return s.mqttClient.Publish(s.topicPrefix+"/device/state", byte(s.qos), true, []byte(state))
}

func (s *MQTTSink) attributesTopic(entityID string) string {
	return s.topicPrefix + "/entities/" + entityID + "/attributes"
}

func (s *MQTTSink) handleSubscribe(client MQTT.Client, msg MQTT.Message) {
	var event models.SubscriptionEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Malformed subscribe event")
		return
	}

	for _, entityID := range event.EntityIDs {
		s.subscribers.Set(entityID, true)
		s.logger.Info().Str("entity_id", entityID).Msg("Host subscribed to entity")
		s.notifySubscription(entityID, true)
	}
}

func (s *MQTTSink) handleUnsubscribe(client MQTT.Client, msg MQTT.Message) {
	var event models.SubscriptionEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Malformed unsubscribe event")
		return
	}

	for _, entityID := range event.EntityIDs {
		s.subscribers.Remove(entityID)
		s.logger.Info().Str("entity_id", entityID).Msg("Host unsubscribed from entity")
		s.notifySubscription(entityID, false)
	}
}

func (s *MQTTSink) handleStandby(client MQTT.Client, msg MQTT.Message) {
	var event models.StandbyEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Malformed standby event")
		return
	}

	s.logger.Info().Bool("standby", event.Standby).Msg("Host standby state changed")
	s.mu.Lock()
	handlers := append([]StandbyHandler(nil), s.standbyHandlers...)
	s.mu.Unlock()
	for _, handler := range handlers {
		handler(event.Standby)
	}
}

func (s *MQTTSink) notifySubscription(entityID string, subscribed bool) {
	s.mu.Lock()
	handlers := append([]SubscriptionHandler(nil), s.subscriptionHandlers...)
	s.mu.Unlock()
	for _, handler := range handlers {
		handler(entityID, subscribed)
	}
}
