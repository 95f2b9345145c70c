package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config holds MQTT connection configuration.
type Config struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	DiscoveryPrefix string
}

// broker is the part of an MQTT connection the host uses.
type broker interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler func(payload []byte)) error
	Unsubscribe(topic string) error
	Disconnect()
}

type pahoBroker struct {
	client  pahomqtt.Client
	timeout time.Duration
}

func (b pahoBroker) wait(token pahomqtt.Token, what, topic string) error {
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("mqtt %s %s: timeout", what, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s %s: %w", what, topic, err)
	}
	return nil
}

func (b pahoBroker) Publish(topic string, payload []byte, retained bool) error {
	return b.wait(b.client.Publish(topic, 1, retained, payload), "publish", topic)
}

func (b pahoBroker) Subscribe(topic string, handler func(payload []byte)) error {
	return b.wait(b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Payload())
	}), "subscribe", topic)
}

func (b pahoBroker) Unsubscribe(topic string) error {
	return b.wait(b.client.Unsubscribe(topic), "unsubscribe", topic)
}

func (b pahoBroker) Disconnect() {
	b.client.Disconnect(1000)
}
