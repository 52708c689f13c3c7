package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	SpeedIndex    int         `json:"speed_index"`
	Multiplier    int         `json:"multiplier"`
	CycleMs       int64       `json:"cycle_ms"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Sample        *SampleJSON `json:"last_sample,omitempty"`
	SampleError   string      `json:"sample_error,omitempty"`
	Tasks         []TaskJSON  `json:"tasks"`
	MQTT          LinkStatus  `json:"mqtt"`
	NATS          LinkStatus  `json:"nats"`
	Counts        CountsJSON  `json:"counts"`
	Config        ConfigJSON  `json:"config"`
}

// LinkStatus reports a broker connection state.
type LinkStatus struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
}

// SampleJSON is the JSON representation of the last analog reading.
type SampleJSON struct {
	Raw        uint16  `json:"raw"`
	Millivolts float32 `json:"millivolts"`
	At         string  `json:"at"`
}

// TaskJSON is the JSON representation of one task's state.
type TaskJSON struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Presses uint64 `json:"presses"`
	Cycles  uint64 `json:"cycles"`
	Samples uint64 `json:"samples"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DebounceMs     int64  `json:"debounce_ms"`
	SamplePeriodMs int64  `json:"sample_period_ms"`
	ADCSource      string `json:"adc_source"`
	Broker         string `json:"broker"`
	NATSURL        string `json:"nats_url"`
	HTTPAddr       string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		SpeedIndex:    snap.SpeedIndex,
		Multiplier:    snap.Multiplier,
		CycleMs:       snap.Cycle.Milliseconds(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		SampleError:   snap.SampleError,
		Tasks:         make([]TaskJSON, 0, len(snap.Tasks)),
		MQTT:          LinkStatus{Connected: snap.MQTTConnected, URL: snap.Config.Broker},
		NATS:          LinkStatus{Connected: snap.NATSConnected, URL: snap.Config.NATSURL},
		Counts: CountsJSON{
			Presses: snap.Presses,
			Cycles:  snap.Cycles,
			Samples: snap.Samples,
		},
		Config: ConfigJSON{
			DebounceMs:     snap.Config.DebounceMs,
			SamplePeriodMs: snap.Config.SamplePeriodMs,
			ADCSource:      snap.Config.ADCSource,
			Broker:         snap.Config.Broker,
			NATSURL:        snap.Config.NATSURL,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
	if snap.LastSample != nil {
		inner.Sample = &SampleJSON{
			Raw:        snap.LastSample.Raw,
			Millivolts: snap.LastSample.Millivolts,
			At:         snap.LastSample.At.UTC().Format(time.RFC3339Nano),
		}
	}
	for _, t := range snap.Tasks {
		inner.Tasks = append(inner.Tasks, TaskJSON{Name: t.Name, State: string(t.State)})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
