package cmd

import (
	"github.com/anicoll/plug2mqtt/internal/pkg/mqtt"
)

// BrokerService defines what the commands expect from the MQTT connection.
type BrokerService interface {
	Connect() error
	Service() error
	Publish(topic string, payload []byte) error
	Subscribe(filter string, handler mqtt.MessageHandler) error
	Disconnect()
}
