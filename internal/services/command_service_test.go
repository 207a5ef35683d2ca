package services

import (
	"context"
	"testing"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockMQTTClient is a mock implementation of the MQTTClient interface
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error {
	args := m.Called(topic, qos, callback)
	return args.Error(0)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// MockRefresher is a mock implementation of the Refresher interface
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context) {
	m.Called(ctx)
}

// mockMessage implements MQTT.Message for testing
type mockMessage struct {
	payload []byte
	topic   string
}

func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) MessageID() uint16 { return 1 }
func (m *mockMessage) Ack()              {}

func newStartedCommandService(t *testing.T, client *MockMQTTClient, refresher *MockRefresher) *CommandService {
	client.On("Subscribe", "remote/weather/entities/entity-1/commands", byte(1), mock.Anything).Return(nil)

	cs := NewCommandService("remote/weather", "entity-1", 1, refresher, client, zerolog.Nop())
	assert.NoError(t, cs.Start())
	return cs
}

// TestCommandService_Start_SubscribesCommandTopic verifies Start
// subscribes to the entity command topic.
func TestCommandService_Start_SubscribesCommandTopic(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)

	// Execute
	newStartedCommandService(t, client, refresher)

	// Assert
	client.AssertCalled(t, "Subscribe", "remote/weather/entities/entity-1/commands", byte(1), mock.Anything)
}

// TestCommandService_Start_AlreadyRunning verifies double start fails.
func TestCommandService_Start_AlreadyRunning(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)

	// Execute
	err := cs.Start()

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "command service is already running", err.Error())
}

// TestCommandService_Stop verifies Stop unsubscribes and that stopping
// twice fails.
func TestCommandService_Stop(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)
	client.On("Unsubscribe", []string{"remote/weather/entities/entity-1/commands"}).Return(nil)

	// Execute
	err := cs.Stop()

	// Assert
	assert.NoError(t, err)
	client.AssertCalled(t, "Unsubscribe", []string{"remote/weather/entities/entity-1/commands"})

	err = cs.Stop()
	assert.Error(t, err)
	assert.Equal(t, "command service is not running", err.Error())
}

// TestCommandService_HandleCommand_Refresh verifies a refresh command
// triggers the refresher and acknowledges with success.
func TestCommandService_HandleCommand_Refresh(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)

	refresher.On("Refresh", mock.Anything).Return()
	client.On("Publish", "remote/weather/entities/entity-1/commands/response", byte(1), false, mock.Anything).Return(nil)

	msg := &mockMessage{
		payload: []byte(`{"command": "refresh"}`),
		topic:   "remote/weather/entities/entity-1/commands",
	}

	// Execute
	cs.HandleCommand(nil, msg)

	// Assert
	refresher.AssertNumberOfCalls(t, "Refresh", 1)
	client.AssertCalled(t, "Publish", "remote/weather/entities/entity-1/commands/response", byte(1), false,
		[]byte(`{"command":"refresh","status":"success"}`))
}

// TestCommandService_HandleCommand_CaseInsensitive verifies command
// names are matched after trimming regardless of case.
func TestCommandService_HandleCommand_CaseInsensitive(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)

	refresher.On("Refresh", mock.Anything).Return()
	client.On("Publish", "remote/weather/entities/entity-1/commands/response", byte(1), false, mock.Anything).Return(nil)

	msg := &mockMessage{
		payload: []byte(`{"command": "  REFRESH  "}`),
		topic:   "remote/weather/entities/entity-1/commands",
	}

	// Execute
	cs.HandleCommand(nil, msg)

	// Assert
	refresher.AssertNumberOfCalls(t, "Refresh", 1)
	client.AssertCalled(t, "Publish", "remote/weather/entities/entity-1/commands/response", byte(1), false,
		[]byte(`{"command":"REFRESH","status":"success"}`))
}

// TestCommandService_HandleCommand_Unsupported verifies unknown commands
// are acknowledged as not supported and do not trigger a refresh.
func TestCommandService_HandleCommand_Unsupported(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)

	client.On("Publish", "remote/weather/entities/entity-1/commands/response", byte(1), false, mock.Anything).Return(nil)

	msg := &mockMessage{
		payload: []byte(`{"command": "reboot"}`),
		topic:   "remote/weather/entities/entity-1/commands",
	}

	// Execute
	cs.HandleCommand(nil, msg)

	// Assert
	refresher.AssertNotCalled(t, "Refresh", mock.Anything)
	client.AssertCalled(t, "Publish", "remote/weather/entities/entity-1/commands/response", byte(1), false,
		[]byte(`{"command":"reboot","status":"not_supported"}`))
}

// TestCommandService_HandleCommand_MalformedPayload verifies broken
// payloads are dropped without a response.
func TestCommandService_HandleCommand_MalformedPayload(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)

	msg := &mockMessage{
		payload: []byte(`{not json`),
		topic:   "remote/weather/entities/entity-1/commands",
	}

	// Execute
	cs.HandleCommand(nil, msg)

	// Assert
	refresher.AssertNotCalled(t, "Refresh", mock.Anything)
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestCommandService_HandleCommand_AfterStop verifies commands arriving
// after the service stopped are ignored.
func TestCommandService_HandleCommand_AfterStop(t *testing.T) {
	// Setup
	client := new(MockMQTTClient)
	refresher := new(MockRefresher)
	cs := newStartedCommandService(t, client, refresher)
	client.On("Unsubscribe", []string{"remote/weather/entities/entity-1/commands"}).Return(nil)
	assert.NoError(t, cs.Stop())

	msg := &mockMessage{
		payload: []byte(`{"command": "refresh"}`),
		topic:   "remote/weather/entities/entity-1/commands",
	}

	// Execute
	cs.HandleCommand(nil, msg)

	// Assert
	refresher.AssertNotCalled(t, "Refresh", mock.Anything)
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
