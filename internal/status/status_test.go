package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/heartbeat-node/internal/report"
	"github.com/sweeney/heartbeat-node/internal/sched"
	"github.com/sweeney/heartbeat-node/internal/speed"
)

func cycle(m int) time.Duration { return time.Second / time.Duration(m) }

func newIndex(t *testing.T, i int) *speed.Index {
	t.Helper()
	idx, err := speed.NewIndex(i)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{DebounceMs: 50, SamplePeriodMs: 500, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg, newIndex(t, 0), cycle)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.DebounceMs != 50 {
		t.Errorf("Config.DebounceMs: got %d, want 50", snap.Config.DebounceMs)
	}
	if snap.SpeedIndex != 0 || snap.Multiplier != 1 {
		t.Errorf("speed: got index %d multiplier %d, want 0/1", snap.SpeedIndex, snap.Multiplier)
	}
	if snap.Cycle != time.Second {
		t.Errorf("Cycle: got %v, want 1s", snap.Cycle)
	}
	if snap.LastSample != nil {
		t.Error("expected no sample initially")
	}
	if snap.MQTTConnected || snap.NATSConnected {
		t.Error("expected links down initially")
	}
}

func TestSnapshotReadsSpeedLive(t *testing.T) {
	idx := newIndex(t, 0)
	tr := NewTracker(time.Now(), Config{}, idx, cycle)

	idx.Advance()
	idx.Advance()

	snap := tr.Snapshot()
	if snap.SpeedIndex != 2 || snap.Multiplier != 4 {
		t.Errorf("speed: got index %d multiplier %d, want 2/4", snap.SpeedIndex, snap.Multiplier)
	}
	if snap.Cycle != 250*time.Millisecond {
		t.Errorf("Cycle: got %v, want 250ms", snap.Cycle)
	}
}

func TestReportCounts(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil, nil)
	at := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)

	tr.Report(report.Event{Type: report.EventHeartbeat})
	tr.Report(report.Event{Type: report.EventHeartbeat})
	tr.Report(report.Event{Type: report.EventPress})
	tr.Report(report.Event{Type: report.EventSample, Raw: 100, Millivolts: 80.6, Timestamp: at})
	tr.Report(report.Event{Type: report.EventSample, Raw: 2048, Millivolts: 1650.4, Timestamp: at.Add(time.Second)})

	snap := tr.Snapshot()
	if snap.Cycles != 2 {
		t.Errorf("Cycles: got %d, want 2", snap.Cycles)
	}
	if snap.Presses != 1 {
		t.Errorf("Presses: got %d, want 1", snap.Presses)
	}
	if snap.Samples != 2 {
		t.Errorf("Samples: got %d, want 2", snap.Samples)
	}
	if snap.LastSample == nil || snap.LastSample.Raw != 2048 {
		t.Fatalf("LastSample: got %+v, want raw 2048", snap.LastSample)
	}
	if !snap.LastSample.At.Equal(at.Add(time.Second)) {
		t.Errorf("LastSample.At: got %v", snap.LastSample.At)
	}
}

func TestReportSampleErrorAndTaskState(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil, nil)
	tr.SetTasks(map[string]sched.State{
		"heartbeat": sched.StateRunning,
		"button":    sched.StateRunning,
		"sampler":   sched.StateRunning,
	})

	tr.Report(report.Event{Type: report.EventSampleError, Task: "sampler", Detail: "adc: conversion failed"})
	tr.Report(report.Event{Type: report.EventTaskState, Task: "sampler", Detail: string(sched.StateExited)})

	snap := tr.Snapshot()
	if snap.SampleError != "adc: conversion failed" {
		t.Errorf("SampleError: got %q", snap.SampleError)
	}
	want := []TaskInfo{
		{Name: "button", State: sched.StateRunning},
		{Name: "heartbeat", State: sched.StateRunning},
		{Name: "sampler", State: sched.StateExited},
	}
	if len(snap.Tasks) != len(want) {
		t.Fatalf("Tasks: got %d, want %d", len(snap.Tasks), len(want))
	}
	for i := range want {
		if snap.Tasks[i] != want[i] {
			t.Errorf("Tasks[%d]: got %+v, want %+v", i, snap.Tasks[i], want[i])
		}
	}
}

func TestSetConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil, nil)

	tr.SetMQTTConnected(true)
	tr.SetNATSConnected(true)
	snap := tr.Snapshot()
	if !snap.MQTTConnected || !snap.NATSConnected {
		t.Error("expected both links connected")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil, nil)
	tr.Report(report.Event{Type: report.EventSample, Raw: 1})
	tr.Report(report.Event{Type: report.EventTaskState, Task: "sampler", Detail: "RUNNING"})

	snap1 := tr.Snapshot()

	tr.Report(report.Event{Type: report.EventSample, Raw: 2})
	tr.Report(report.Event{Type: report.EventTaskState, Task: "sampler", Detail: "EXITED"})

	if snap1.LastSample.Raw != 1 {
		t.Error("snapshot should be a copy; LastSample was modified")
	}
	if snap1.Tasks[0].State != sched.StateRunning {
		t.Error("snapshot should be a copy; task state was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		SpeedIndex:    1,
		Multiplier:    2,
		Cycle:         500 * time.Millisecond,
		Presses:       4,
		Cycles:        20,
		Samples:       7,
		LastSample:    &Sample{Raw: 1241, Millivolts: 1000.1, At: start.Add(time.Minute)},
		Tasks:         []TaskInfo{{Name: "sampler", State: sched.StateRunning}},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{DebounceMs: 50, SamplePeriodMs: 500, ADCSource: "iio", Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.SpeedIndex != 1 || s.Multiplier != 2 || s.CycleMs != 500 {
		t.Errorf("speed: got %d/%d/%dms", s.SpeedIndex, s.Multiplier, s.CycleMs)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.NATS.Connected {
		t.Errorf("links: got mqtt=%v nats=%v", s.MQTT.Connected, s.NATS.Connected)
	}
	if s.Counts.Presses != 4 || s.Counts.Cycles != 20 || s.Counts.Samples != 7 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Sample == nil || s.Sample.Raw != 1241 {
		t.Errorf("Sample: got %+v", s.Sample)
	}
	if len(s.Tasks) != 1 || s.Tasks[0].State != "RUNNING" {
		t.Errorf("Tasks: got %+v", s.Tasks)
	}
	if s.Config.ADCSource != "iio" {
		t.Errorf("Config.ADCSource: got %q", s.Config.ADCSource)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONOmitsMissingSample(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, exists := raw["status"]["last_sample"]; exists {
		t.Error("last_sample should be omitted before the first reading")
	}
	if _, exists := raw["status"]["sample_error"]; exists {
		t.Error("sample_error should be omitted when empty")
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 1800 {
		t.Errorf("UptimeSeconds: got %d, want 1800", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	idx := newIndex(t, 0)
	tr := NewTracker(time.Now(), Config{}, idx, cycle)
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Report(report.Event{Type: report.EventSample, Raw: uint16(i)})
			tr.SetMQTTConnected(i%2 == 0)
			idx.Advance()
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
