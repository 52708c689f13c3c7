// Package natsout streams analog samples to NATS.
package natsout

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sweeney/heartbeat-node/internal/report"
)

// Conn is the subset of *nats.Conn used by Publisher.
type Conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Drain() error
}

// Connect dials the server with reconnects enabled indefinitely. An
// unreachable server is retried in the background.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("nats: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats: reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// Publisher is a report sink that forwards SAMPLE events to one subject.
// Other event types are ignored.
type Publisher struct {
	conn    Conn
	subject string
	failing bool
}

// NewPublisher creates a Publisher on conn.
func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Report publishes sample events. Called from the report relay goroutine only.
func (p *Publisher) Report(e report.Event) {
	if e.Type != report.EventSample {
		return
	}
	payload, err := report.FormatPayload(e)
	if err != nil {
		log.Printf("nats: format sample: %v", err)
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		if !p.failing {
			log.Printf("nats: publish to %s: %v", p.subject, err)
			p.failing = true
		}
		return
	}
	p.failing = false
}

// IsConnected reports the connection state.
func (p *Publisher) IsConnected() bool {
	return p.conn.IsConnected()
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
