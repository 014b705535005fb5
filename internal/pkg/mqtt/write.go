package mqtt

import (
	"fmt"
	"maps"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const writeTimeout = time.Second

// Publish sends payload at QoS 0 without retain. A write failure is treated
// as a broker fault: the service reconnects once and retries the message.
func (s *service) Publish(topic string, payload []byte) error {
	err := s.publish(topic, payload)
	if err == nil {
		return nil
	}
	if err := s.recover(err); err != nil {
		return err
	}
	if err := s.publish(topic, payload); err != nil {
		return fmt.Errorf("%w: retry after reconnect: %w", ErrBrokerFault, err)
	}
	return nil
}

// publish does not wait for delivery, only for the write to be handed to the
// network so that a broken connection is noticed.
func (s *service) publish(topic string, payload []byte) error {
	token := s.client.Publish(topic, 0, false, payload)
	if token.WaitTimeout(writeTimeout) {
		return token.Error()
	}
	s.logger.Debug("publish still in flight", zap.String("topic", topic))
	return nil
}

// Subscribe registers handler for filter at QoS 0. The subscription is
// restored whenever the service reconnects.
func (s *service) Subscribe(filter string, handler MessageHandler) error {
	s.mu.Lock()
	s.subscriptions[filter] = handler
	s.mu.Unlock()

	if err := s.subscribe(filter, handler); err != nil {
		return err
	}
	s.logger.Info("subscribed", zap.String("topic", filter))
	return nil
}

func (s *service) subscribe(filter string, handler MessageHandler) error {
	token := s.client.Subscribe(filter, 0, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return errTimeout
	}
	return token.Error()
}

func (s *service) resubscribe() error {
	s.mu.Lock()
	subs := maps.Clone(s.subscriptions)
	s.mu.Unlock()

	for filter, handler := range subs {
		if err := s.subscribe(filter, handler); err != nil {
			return err
		}
		s.logger.Debug("resubscribed", zap.String("topic", filter))
	}
	return nil
}
