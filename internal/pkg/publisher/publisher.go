package publisher

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/anicoll/plug2mqtt/internal/pkg/model"
)

type sink interface {
	Publish(topic string, payload []byte) error
}

// PublishAll serializes every successful result and publishes it under its
// topic. Failed results are skipped; they were logged when polled. Only a
// broker fault stops the run and is returned.
func PublishAll(s sink, results model.CycleResult) error {
	count := 0
	for _, res := range results.Succeeded() {
		data, err := json.Marshal(res.Payload)
		if err != nil {
			zap.L().Error("cannot serialize payload", zap.String("hostname", res.Hostname), zap.Error(err))
			continue
		}
		if err := s.Publish(res.Topic, data); err != nil {
			return fmt.Errorf("publish to %s: %w", res.Topic, err)
		}
		zap.L().Debug("published", zap.String("topic", res.Topic), zap.ByteString("payload", data))
		count++
	}
	zap.L().Info("published device states", zap.Int("count", count), zap.Int("devices", len(results)))
	return nil
}
