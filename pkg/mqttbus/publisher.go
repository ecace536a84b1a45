package mqttbus

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes payloads to arbitrary topics.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Close()
}

// ClientPublisher is the Publisher backed by a shared paho client.
type ClientPublisher struct {
	client mqtt.Client
}

func NewPublisher(client mqtt.Client) *ClientPublisher {
	return &ClientPublisher{client: client}
}

func (p *ClientPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", topic, token.Error())
	}
	return nil
}

func (p *ClientPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
