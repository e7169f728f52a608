package publisher

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-json-experiment/json"

	"github.com/jgoulah/pvrelay/internal/config"
	"github.com/jgoulah/pvrelay/pkg/models"
)

// Publisher mirrors confirmed readings to an MQTT broker
type Publisher struct {
	client mqtt.Client
	topic  string
}

// StatePayload is the retained JSON state message
type StatePayload struct {
	Timestamp string  `json:"timestamp"`
	DayEnergy float64 `json:"day_energy_wh"`
	Voltage   float64 `json:"voltage"`
}

// New connects to the broker in cfg. Readings are published under
// <topicPrefix>/<systemID>/state.
func New(cfg config.MQTTConfig, topicPrefix, systemID string) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("pvrelay_%s", systemID)
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newWithClient(client, topicPrefix, systemID), nil
}

func newWithClient(client mqtt.Client, topicPrefix, systemID string) *Publisher {
	return &Publisher{
		client: client,
		topic:  StateTopic(topicPrefix, systemID),
	}
}

// StateTopic returns the retained state topic for a system
func StateTopic(topicPrefix, systemID string) string {
	return fmt.Sprintf("%s/%s/state", topicPrefix, systemID)
}

// NewStatePayload builds the state message for r
func NewStatePayload(r models.Reading) StatePayload {
	return StatePayload{
		Timestamp: r.Time().Format(time.RFC3339),
		DayEnergy: r.DayEnergy,
		Voltage:   r.Voltage,
	}
}

// PublishReading publishes r as the retained state
func (p *Publisher) PublishReading(r models.Reading) error {
	body, err := json.Marshal(NewStatePayload(r))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, body)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing to %s: timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
