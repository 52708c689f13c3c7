// Package mqtt publishes node events to an MQTT broker, with an abstraction
// for testing.
package mqtt

import (
	"encoding/json"
	"log"
	"time"

	"github.com/sweeney/heartbeat-node/internal/report"
)

// Topics under the configured prefix.
const (
	eventsSuffix = "/events"
	systemSuffix = "/system"
)

// EventsTopic returns the topic for task events.
func EventsTopic(prefix string) string { return prefix + eventsSuffix }

// SystemTopic returns the topic for lifecycle events.
func SystemTopic(prefix string) string { return prefix + systemSuffix }

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a task event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event report.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (STARTUP, SHUTDOWN, RECONNECTED,
// OFFLINE).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted payload; if set, FormatSystemPayload returns it as is
	Retained   bool
}

// SystemPayload is the JSON form of a system event without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// Sink adapts a Publisher to report.Reporter for use behind a report.Relay.
type Sink struct {
	Publisher Publisher
}

// Report publishes e, logging failures.
func (s Sink) Report(e report.Event) {
	if err := s.Publisher.Publish(e); err != nil {
		log.Printf("mqtt: publish %s: %v", e.Type, err)
	}
}
