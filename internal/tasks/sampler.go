package tasks

import (
	"time"

	"github.com/sweeney/heartbeat-node/internal/adc"
	"github.com/sweeney/heartbeat-node/internal/report"
	"github.com/sweeney/heartbeat-node/internal/sched"
)

// DefaultSamplePeriod is the interval between conversions.
const DefaultSamplePeriod = 500 * time.Millisecond

// Sampler converts the analog channel once per period and reports each value.
// The first conversion failure ends the task; there is no retry.
type Sampler struct {
	ch       adc.Channel
	scale    adc.Scale
	period   time.Duration
	reporter report.Reporter

	started bool
	samples uint64
}

// NewSampler creates the sampler task. A non-positive period uses
// DefaultSamplePeriod.
func NewSampler(ch adc.Channel, scale adc.Scale, period time.Duration, r report.Reporter) *Sampler {
	if period <= 0 {
		period = DefaultSamplePeriod
	}
	return &Sampler{ch: ch, scale: scale, period: period, reporter: r}
}

// Name implements sched.Task.
func (s *Sampler) Name() string { return "sampler" }

// Samples returns the number of successful conversions.
func (s *Sampler) Samples() uint64 { return s.samples }

// Resume waits one period, then samples on every following resume.
func (s *Sampler) Resume(now time.Time) sched.Wait {
	if !s.started {
		s.started = true
		return sched.Delay(s.period)
	}

	raw, err := s.ch.Read()
	if err != nil {
		s.reporter.Report(report.Event{
			Timestamp: now,
			Type:      report.EventSampleError,
			Task:      s.Name(),
			Detail:    err.Error(),
		})
		return sched.Exit()
	}

	s.samples++
	s.reporter.Report(report.Event{
		Timestamp:  now,
		Type:       report.EventSample,
		Task:       s.Name(),
		Raw:        raw,
		Millivolts: s.scale.Millivolts(raw),
	})
	return sched.Delay(s.period)
}
