package events

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes events to a Kafka topic through a caller-configured
// writer. The writer's topic, balancer, and batching settings are the
// caller's choice; the sink only serializes and keys messages.
type KafkaSink struct {
	writer *kafka.Writer
	errs   atomic.Uint64
}

func NewKafkaSink(writer *kafka.Writer) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// Emit publishes one event. Messages are keyed by account, falling back to
// address, so per-principal ordering survives partitioning. Publish errors
// are counted, not surfaced; the log remains the durable record.
func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		s.errs.Add(1)
		return
	}

	key := event.Account
	if key == "" {
		key = event.Address
	}
	if key == "" {
		key = event.ID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.errs.Add(1)
	}
}

// PublishErrors reports how many events failed to publish.
func (s *KafkaSink) PublishErrors() uint64 {
	if s == nil {
		return 0
	}
	return s.errs.Load()
}
