package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Event is the payload published for each completed assessment
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Probability float64   `json:"probability"`
	MotorUPDRS  float64   `json:"motor_updrs"`
	TotalUPDRS  float64   `json:"total_updrs"`
	TestTime    float64   `json:"test_time"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// Publisher delivers events to subscribers
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
	Close()
}

// Noop discards every event
type Noop struct{}

// Publish does nothing
func (Noop) Publish(context.Context, *Event) error { return nil }

// Close does nothing
func (Noop) Close() {}

// MQTTConfig holds MQTT publisher configuration
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // may contain {status}, e.g. "parkinson/verdicts/{status}"
	QoS      byte
	Timeout  time.Duration
}

// publishClient is the subset of mqtt.Client used for publishing
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events as JSON over MQTT
type MQTTPublisher struct {
	client publishClient
	config MQTTConfig
	logger *slog.Logger
}

// NewMQTTPublisher connects to the broker and returns a publisher
func NewMQTTPublisher(config MQTTConfig, logger *slog.Logger) (*MQTTPublisher, error) {
	if config.Broker == "" {
		return nil, errors.New("broker cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.Timeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("Connected to MQTT broker", slog.String("broker", config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.String("broker", config.Broker), slog.Any("error", err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return newMQTTPublisher(client, config, logger), nil
}

func newMQTTPublisher(client publishClient, config MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &MQTTPublisher{
		client: client,
		config: config,
		logger: logger,
	}
}

// Publish sends the event and waits for the broker to acknowledge it
func (p *MQTTPublisher) Publish(ctx context.Context, e *Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := FormatTopic(p.config.Topic, e.Status)
	token := p.client.Publish(topic, p.config.QoS, false, payload)

	timer := time.NewTimer(p.config.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s cancelled: %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("timed out publishing to %s", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debug("Published verdict",
		slog.String("id", e.ID),
		slog.String("topic", topic),
		slog.String("status", e.Status),
	)
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// FormatTopic replaces the {status} placeholder with a topic-safe form of status
func FormatTopic(pattern, status string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(status)), " ", "_")
	return strings.ReplaceAll(pattern, "{status}", slug)
}
