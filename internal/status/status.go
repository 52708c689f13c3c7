// Package status provides a thread-safe status tracker for the heartbeat-node
// daemon. It is fed by the report relay and read by HTTP handlers.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/sweeney/heartbeat-node/internal/report"
	"github.com/sweeney/heartbeat-node/internal/sched"
	"github.com/sweeney/heartbeat-node/internal/speed"
)

// Config contains daemon configuration for display.
type Config struct {
	DebounceMs     int64
	SamplePeriodMs int64
	ADCSource      string
	Broker         string
	NATSURL        string
	HTTPAddr       string
}

// Sample is the most recent analog reading.
type Sample struct {
	Raw        uint16
	Millivolts float32
	At         time.Time
}

// TaskInfo is the lifecycle state of one task.
type TaskInfo struct {
	Name  string
	State sched.State
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	SpeedIndex int
	Multiplier int
	Cycle      time.Duration

	Presses       uint64
	Cycles        uint64
	Samples       uint64
	LastSample    *Sample
	SampleError   string
	Tasks         []TaskInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	NATSConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. The speed index is
// read live from its atomic cell on every snapshot.
type Tracker struct {
	speed *speed.Index
	cycle func(multiplier int) time.Duration

	mu    sync.RWMutex
	snap  Snapshot
	tasks map[string]sched.State
}

// NewTracker creates a Tracker. cycle computes the heartbeat cycle length for
// a multiplier.
func NewTracker(startTime time.Time, cfg Config, idx *speed.Index, cycle func(int) time.Duration) *Tracker {
	return &Tracker{
		speed: idx,
		cycle: cycle,
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		tasks: make(map[string]sched.State),
	}
}

// Report implements report.Reporter.
func (t *Tracker) Report(e report.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case report.EventHeartbeat:
		t.snap.Cycles++
	case report.EventPress:
		t.snap.Presses++
	case report.EventSample:
		t.snap.Samples++
		t.snap.LastSample = &Sample{Raw: e.Raw, Millivolts: e.Millivolts, At: e.Timestamp}
	case report.EventSampleError:
		t.snap.SampleError = e.Detail
	case report.EventTaskState:
		t.tasks[e.Task] = sched.State(e.Detail)
	}
}

// SetTasks records the initial state of every task.
func (t *Tracker) SetTasks(states map[string]sched.State) {
	t.mu.Lock()
	for name, st := range states {
		t.tasks[name] = st
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNATSConnected sets the NATS connection status.
func (t *Tracker) SetNATSConnected(connected bool) {
	t.mu.Lock()
	t.snap.NATSConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastSample != nil {
		ls := *s.LastSample
		s.LastSample = &ls
	}
	s.Tasks = make([]TaskInfo, 0, len(t.tasks))
	for name, st := range t.tasks {
		s.Tasks = append(s.Tasks, TaskInfo{Name: name, State: st})
	}
	t.mu.RUnlock()

	sort.Slice(s.Tasks, func(i, j int) bool { return s.Tasks[i].Name < s.Tasks[j].Name })
	if t.speed != nil {
		s.SpeedIndex = t.speed.Load()
		s.Multiplier = speed.Multipliers[s.SpeedIndex]
		if t.cycle != nil {
			s.Cycle = t.cycle(s.Multiplier)
		}
	}
	s.Now = time.Now()
	return s
}
