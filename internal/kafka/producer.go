// Package kafka publishes estimate telemetry to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		// Telemetry must never stall the query path.
		Async: true,
	}
	return &Producer{writer: w}
}

func (p *Producer) WriteMessage(key, value []byte) error {
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// WriteJSON marshals v and publishes it keyed by symbol.
func (p *Producer) WriteJSON(symbol string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.WriteMessage([]byte(symbol), b)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
