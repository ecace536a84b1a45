package mqttbus

import (
	"context"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one inbound message.
type Handler func(topic string, msg mqtt.Message) error

// Consumer subscribes to a set of topic filters and dispatches messages to
// a single handler. Consume blocks until the context is cancelled.
type Consumer struct {
	client  mqtt.Client
	topics  map[string]byte // filter -> qos
	handler Handler
}

func NewConsumer(client mqtt.Client, topics map[string]byte) *Consumer {
	return &Consumer{client: client, topics: topics}
}

func (c *Consumer) SetHandler(h Handler) { c.handler = h }

func (c *Consumer) Consume(ctx context.Context) {
	for filter, qos := range c.topics {
		filter := filter
		token := c.client.Subscribe(filter, qos, func(_ mqtt.Client, msg mqtt.Message) {
			if c.handler == nil {
				log.Printf("no handler set for topic %s", msg.Topic())
				return
			}
			if err := c.handler(msg.Topic(), msg); err != nil {
				log.Printf("error handling message on %s: %v", msg.Topic(), err)
			}
		})
		if token.Wait() && token.Error() != nil {
			log.Printf("subscribe %s: %v", filter, token.Error())
			continue
		}
		log.Printf("subscribed to %s (qos %d)", filter, qos)
	}

	<-ctx.Done()

	for filter := range c.topics {
		c.client.Unsubscribe(filter).Wait()
	}
}
