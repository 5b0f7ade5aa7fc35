package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	appevents "github.com/jhoicas/pos-ledger/internal/application/events"
)

const kafkaWriteTimeout = 5 * time.Second

// messageWriter subconjunto de *kafka.Writer que usa el sink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publica eventos JSON en un topic; la clave es el ID del evento.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaSink crea el writer hacia brokers/topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: se requiere al menos un broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic vacío")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: w}, nil
}

func (s *KafkaSink) Send(ctx context.Context, ev appevents.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", ev.ID, err)
	}
	ctx, cancel := context.WithTimeout(ctx, kafkaWriteTimeout)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(ev.ID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.Type, err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.writer.Close() }
