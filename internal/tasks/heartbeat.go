// Package tasks contains the three cooperative tasks of the node: the LED
// heartbeat, the debounced speed button and the analog sampler.
//
// Each task is a sched.Task state machine owning exactly one hardware handle.
// The only state shared between tasks is the speed.Index.
package tasks

import (
	"log"
	"time"

	"github.com/sweeney/heartbeat-node/internal/gpio"
	"github.com/sweeney/heartbeat-node/internal/report"
	"github.com/sweeney/heartbeat-node/internal/sched"
	"github.com/sweeney/heartbeat-node/internal/speed"
)

// step is one segment of the heartbeat waveform at multiplier 1.
type step struct {
	level gpio.Level
	base  time.Duration
}

// waveform is one heartbeat cycle: idle, beat, gap, beat, tail.
var waveform = [...]step{
	{gpio.Low, 500 * time.Millisecond},
	{gpio.High, 100 * time.Millisecond},
	{gpio.Low, 200 * time.Millisecond},
	{gpio.High, 100 * time.Millisecond},
	{gpio.Low, 100 * time.Millisecond},
}

// CycleDuration returns the length of one heartbeat cycle at multiplier m.
func CycleDuration(m int) time.Duration {
	var d time.Duration
	for _, s := range waveform {
		d += s.base / time.Duration(m)
	}
	return d
}

// Heartbeat blinks the LED in a two-pulse pattern scaled by the speed index.
// The multiplier is read once per cycle; a speed change lands on the next one.
type Heartbeat struct {
	led      gpio.Output
	speed    *speed.Index
	reporter report.Reporter

	step       int
	multiplier int
	cycles     uint64
	failing    bool
}

// NewHeartbeat creates the heartbeat task.
func NewHeartbeat(led gpio.Output, idx *speed.Index, r report.Reporter) *Heartbeat {
	return &Heartbeat{led: led, speed: idx, reporter: r}
}

// Name implements sched.Task.
func (h *Heartbeat) Name() string { return "heartbeat" }

// Cycles returns the number of cycles started.
func (h *Heartbeat) Cycles() uint64 { return h.cycles }

// Resume drives the LED to the next waveform level and sleeps for its
// scaled duration.
func (h *Heartbeat) Resume(now time.Time) sched.Wait {
	if h.step == 0 {
		i := h.speed.Load()
		h.multiplier = speed.Multipliers[i]
		h.cycles++
		h.reporter.Report(report.Event{
			Timestamp:  now,
			Type:       report.EventHeartbeat,
			Task:       h.Name(),
			SpeedIndex: i,
			Multiplier: h.multiplier,
		})
	}

	s := waveform[h.step]
	h.step = (h.step + 1) % len(waveform)

	// A stuck LED is not worth stopping the heartbeat for.
	if err := h.led.Set(s.level); err != nil {
		if !h.failing {
			log.Printf("heartbeat: led write error: %v", err)
			h.failing = true
		}
	} else {
		h.failing = false
	}

	return sched.Delay(s.base / time.Duration(h.multiplier))
}
