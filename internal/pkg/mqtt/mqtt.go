package mqtt

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/config"
)

var (
	ErrBrokerFault = errors.New("broker fault")
	errTimeout     = errors.New("timed out waiting for broker")
)

const (
	connectTimeout    = 5 * time.Second
	disconnectQuiesce = 250
)

// MessageHandler receives messages for a subscription.
type MessageHandler func(topic string, payload []byte)

type service struct {
	client paho_mqtt.Client
	logger *zap.Logger

	mu            sync.Mutex
	subscriptions map[string]MessageHandler
	// reconnects left for the current cycle
	reconnects int
}

func New(client paho_mqtt.Client) *service {
	return &service{
		client:        client,
		logger:        zap.L(),
		subscriptions: map[string]MessageHandler{},
		reconnects:    1,
	}
}

// NewClient builds a paho client for the broker. Reconnecting is left to the
// service so that a failed reconnect surfaces as ErrBrokerFault.
func NewClient(cfg config.MqttConfig) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(ClientID("plug2mqtt"))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
		zap.L().Warn("lost connection to broker", zap.Error(err))
	})
	return paho_mqtt.NewClient(opts)
}

// ClientID returns a client identifier unique to this process.
func ClientID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, slug.Make(host), uuid.NewString()[:8])
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errTimeout
	}
	if err := token.Error(); err != nil {
		return err
	}
	s.logger.Info("connected to broker")
	return s.resubscribe()
}

// Service keeps the broker session alive and is called once per cycle. It
// restores the reconnect allowance and reconnects if the connection dropped.
func (s *service) Service() error {
	s.mu.Lock()
	s.reconnects = 1
	s.mu.Unlock()

	if s.client.IsConnectionOpen() {
		return nil
	}
	return s.recover(errors.New("connection is not open"))
}

func (s *service) Disconnect() {
	if s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesce)
		s.logger.Info("disconnected from broker")
	}
}

// recover logs the fault and makes a single fresh connection attempt if the
// cycle still has one left.
func (s *service) recover(fault error) error {
	s.logger.Error("broker fault", zap.Error(fault))

	s.mu.Lock()
	if s.reconnects <= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrBrokerFault, fault)
	}
	s.reconnects--
	s.mu.Unlock()

	if s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesce)
	}
	if err := s.Connect(); err != nil {
		return fmt.Errorf("%w: reconnect failed: %w", ErrBrokerFault, err)
	}
	s.logger.Info("reconnected to broker")
	return nil
}
