package feed

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// #region publisher

// Publisher sends JSON payloads to MQTT topics. The daemon uses it for
// outbound notifications and sync requests.
type Publisher struct {
	client mqtt.Client
}

// NewPublisher wraps a connected client.
func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishJSON marshals v and publishes it at QoS 1.
func (p *Publisher) PublishJSON(topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	token := p.client.Publish(topic, 1, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// #endregion publisher
