// Package nats publishes estimate telemetry to a NATS subject.
package nats

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"
)

type Producer struct {
	conn    *nats.Conn
	subject string
}

func NewProducer(servers []string, subject string) *Producer {
	serverList := strings.Join(servers, ",")
	for {
		conn, err := nats.Connect(
			serverList,
			nats.Name("cost-engine-telemetry"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(500*time.Millisecond),
		)
		if err == nil {
			return &Producer{conn: conn, subject: subject}
		}
		log.Printf("nats connect error: %v (retrying)", err)
		time.Sleep(time.Second)
	}
}

func (p *Producer) WriteMessage(key, value []byte) error {
	_ = key // NATS subjects carry the routing, keys are Kafka-only
	if p.conn == nil {
		return nats.ErrConnectionClosed
	}
	return p.conn.Publish(p.subject, value)
}

// WriteJSON marshals v and publishes it on the configured subject.
func (p *Producer) WriteJSON(symbol string, v any) error {
	_ = symbol
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.WriteMessage(nil, b)
}

func (p *Producer) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
