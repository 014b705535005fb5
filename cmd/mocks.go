package cmd

import (
	"github.com/anicoll/plug2mqtt/internal/pkg/mqtt"
)

// MockBrokerService is a mock implementation of the BrokerService interface.
type MockBrokerService struct {
	ConnectFunc    func() error
	ServiceFunc    func() error
	PublishFunc    func(topic string, payload []byte) error
	SubscribeFunc  func(filter string, handler mqtt.MessageHandler) error
	DisconnectFunc func()
}

func (m *MockBrokerService) Connect() error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc()
	}
	return nil
}

func (m *MockBrokerService) Service() error {
	if m.ServiceFunc != nil {
		return m.ServiceFunc()
	}
	return nil
}

func (m *MockBrokerService) Publish(topic string, payload []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(topic, payload)
	}
	return nil
}

func (m *MockBrokerService) Subscribe(filter string, handler mqtt.MessageHandler) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(filter, handler)
	}
	return nil
}

func (m *MockBrokerService) Disconnect() {
	if m.DisconnectFunc != nil {
		m.DisconnectFunc()
	}
}
