// Package report carries diagnostic events from the cooperative tasks to
// their consumers (log, status page, MQTT, NATS).
package report

import (
	"encoding/json"
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	EventHeartbeat   EventType = "HEARTBEAT"
	EventPress       EventType = "PRESS"
	EventSample      EventType = "SAMPLE"
	EventSampleError EventType = "SAMPLE_ERROR"
	EventTaskState   EventType = "TASK_STATE"
)

// Event is one observable occurrence in the core.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Task      string

	// Speed index and multiplier (HEARTBEAT, PRESS).
	SpeedIndex int
	Multiplier int

	// Reading (SAMPLE).
	Raw        uint16
	Millivolts float32

	// Diagnostic (SAMPLE_ERROR) or task state (TASK_STATE).
	Detail string
}

// Reporter receives events. Implementations called from the scheduler
// goroutine must not block.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// Payload is the JSON wire form of an Event.
type Payload struct {
	Event EventPayload `json:"event"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp  string   `json:"timestamp"`
	Type       string   `json:"type"`
	Task       string   `json:"task"`
	SpeedIndex *int     `json:"speed_index,omitempty"`
	Multiplier *int     `json:"multiplier,omitempty"`
	Raw        *uint16  `json:"raw,omitempty"`
	Millivolts *float32 `json:"millivolts,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

// FormatPayload creates the JSON payload for an event. Only the fields that
// belong to the event type are included.
func FormatPayload(e Event) ([]byte, error) {
	p := EventPayload{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:      string(e.Type),
		Task:      e.Task,
		Detail:    e.Detail,
	}
	switch e.Type {
	case EventHeartbeat, EventPress:
		p.SpeedIndex = &e.SpeedIndex
		p.Multiplier = &e.Multiplier
	case EventSample:
		p.Raw = &e.Raw
		p.Millivolts = &e.Millivolts
	}
	return json.Marshal(Payload{Event: p})
}
