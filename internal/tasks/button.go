package tasks

import (
	"time"

	"github.com/sweeney/heartbeat-node/internal/gpio"
	"github.com/sweeney/heartbeat-node/internal/report"
	"github.com/sweeney/heartbeat-node/internal/sched"
	"github.com/sweeney/heartbeat-node/internal/speed"
)

// DefaultDebounce is how long the button must stay low before a press counts.
const DefaultDebounce = 50 * time.Millisecond

// buttonState names the wait the button task is suspended on.
type buttonState uint8

const (
	buttonStart buttonState = iota
	waitForLow
	confirmWindow
	waitForRelease
)

// Button debounces an active-low push-button and advances the speed index
// once per confirmed press. It is the only writer of the index.
//
// A press is confirmed when the line is still low one debounce interval
// after it first went low; the index advances when the button is released.
// A low that is gone by the confirmation sample is noise.
type Button struct {
	in       gpio.Input
	speed    *speed.Index
	reporter report.Reporter
	debounce time.Duration

	state   buttonState
	presses uint64
}

// NewButton creates the button task. A non-positive debounce uses
// DefaultDebounce.
func NewButton(in gpio.Input, idx *speed.Index, r report.Reporter, debounce time.Duration) *Button {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Button{in: in, speed: idx, reporter: r, debounce: debounce}
}

// Name implements sched.Task.
func (b *Button) Name() string { return "button" }

// Presses returns the number of confirmed presses.
func (b *Button) Presses() uint64 { return b.presses }

// Resume advances the debounce state machine.
func (b *Button) Resume(now time.Time) sched.Wait {
	switch b.state {
	case waitForLow:
		b.state = confirmWindow
		return sched.Delay(b.debounce)

	case confirmWindow:
		if l, err := b.in.Read(); err == nil && l == gpio.Low {
			b.state = waitForRelease
			return sched.UntilLevel(b.in, gpio.High)
		}
		// Bounce or read error: not a press.

	case waitForRelease:
		b.press(now)
	}

	b.state = waitForLow
	return sched.UntilLevel(b.in, gpio.Low)
}

func (b *Button) press(now time.Time) {
	i := b.speed.Advance()
	b.presses++
	b.reporter.Report(report.Event{
		Timestamp:  now,
		Type:       report.EventPress,
		Task:       b.Name(),
		SpeedIndex: i,
		Multiplier: speed.Multipliers[i],
	})
}
