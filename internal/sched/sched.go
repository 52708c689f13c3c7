// Package sched runs tasks cooperatively on a single goroutine.
//
// A task is a state machine: each Resume call runs until the task's next
// suspension point and returns the Wait it suspends on. The scheduler resumes
// a task only when that wait is satisfied, one task at a time, in spawn order.
// Nothing is preempted; a task that blocks inside Resume blocks everyone.
//
// Time is injected: Run drives the scheduler from the wall clock, Advance
// from a virtual clock for tests.
package sched

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/heartbeat-node/internal/gpio"
)

// Task is a cooperatively scheduled unit of work.
type Task interface {
	Name() string

	// Resume continues the task from its last suspension point. now is the
	// scheduler's current time.
	Resume(now time.Time) Wait
}

type waitKind uint8

const (
	waitReady waitKind = iota
	waitDelay
	waitLevel
	waitExit
)

// Wait describes what a suspended task is waiting for.
type Wait struct {
	kind  waitKind
	delay time.Duration
	in    gpio.Input
	level gpio.Level
}

// Delay suspends the task for d.
func Delay(d time.Duration) Wait {
	return Wait{kind: waitDelay, delay: d}
}

// UntilLevel suspends the task until in reads level. It is satisfied
// immediately if the input is already at that level.
func UntilLevel(in gpio.Input, level gpio.Level) Wait {
	return Wait{kind: waitLevel, in: in, level: level}
}

// Exit ends the task. It is never resumed again.
func Exit() Wait {
	return Wait{kind: waitExit}
}

// State is the lifecycle state of a spawned task.
type State string

const (
	StateRunning State = "RUNNING"
	StateExited  State = "EXITED"
	StateFailed  State = "FAILED"
)

// maxPasses bounds how many times one poll walks the task list, so a task
// that keeps returning an already-satisfied wait cannot starve the driver.
const maxPasses = 64

type entry struct {
	task     Task
	wait     Wait
	deadline time.Time
	state    State
	readErr  bool
}

// Scheduler owns a fixed set of tasks. Spawn, Run and Advance must be called
// from one goroutine; Wake may be called from any.
type Scheduler struct {
	entries   []*entry
	now       time.Time
	wake      chan struct{}
	inputPoll time.Duration
	onState   func(name string, s State)
}

// New creates a Scheduler whose clock starts at start.
func New(start time.Time) *Scheduler {
	return &Scheduler{
		now:  start,
		wake: make(chan struct{}, 1),
	}
}

// Spawn adds a task. It is first resumed on the next poll.
func (s *Scheduler) Spawn(t Task) {
	s.entries = append(s.entries, &entry{task: t, state: StateRunning})
}

// OnStateChange registers fn to be called, on the scheduler goroutine, when a
// task exits or fails.
func (s *Scheduler) OnStateChange(fn func(name string, st State)) {
	s.onState = fn
}

// SetInputPoll makes Run re-check level waits at least every d, for inputs
// that cannot signal edges through Wake. Zero disables polling.
func (s *Scheduler) SetInputPoll(d time.Duration) {
	s.inputPoll = d
}

// Wake asks Run to re-check level waits. It never blocks.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Live returns the number of tasks still running.
func (s *Scheduler) Live() int {
	n := 0
	for _, e := range s.entries {
		if e.state == StateRunning {
			n++
		}
	}
	return n
}

// States returns the lifecycle state of every spawned task by name.
func (s *Scheduler) States() map[string]State {
	m := make(map[string]State, len(s.entries))
	for _, e := range s.entries {
		m[e.task.Name()] = e.state
	}
	return m
}

// Run drives the scheduler from the wall clock until ctx is cancelled or
// every task has ended. It returns ctx.Err() on cancellation, nil otherwise.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		s.now = time.Now()
		s.poll()
		if s.Live() == 0 {
			return nil
		}

		var timerC <-chan time.Time
		if next, ok := s.nextWakeup(); ok {
			timer.Reset(next.Sub(s.now))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
		case <-s.wake:
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// Advance moves virtual time forward by d, firing every deadline that falls
// inside the interval in order and re-checking level waits after each.
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now.Add(d)
	s.poll()
	for {
		next, ok := s.nextDeadline()
		if !ok || next.After(target) {
			break
		}
		if next.After(s.now) {
			s.now = next
		}
		s.poll()
	}
	s.now = target
	s.poll()
}

// poll resumes every task whose wait is satisfied at s.now, repeating until
// no task is ready.
func (s *Scheduler) poll() {
	for pass := 0; pass < maxPasses; pass++ {
		progressed := false
		for _, e := range s.entries {
			if e.state != StateRunning || !s.ready(e) {
				continue
			}
			s.resume(e)
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func (s *Scheduler) ready(e *entry) bool {
	switch e.wait.kind {
	case waitReady:
		return true
	case waitDelay:
		return !e.deadline.After(s.now)
	case waitLevel:
		l, err := e.wait.in.Read()
		if err != nil {
			if !e.readErr {
				log.Printf("sched: %s: input read error: %v", e.task.Name(), err)
				e.readErr = true
			}
			return false
		}
		e.readErr = false
		return l == e.wait.level
	}
	return false
}

func (s *Scheduler) resume(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sched: task %s panicked: %v", e.task.Name(), r)
			s.setState(e, StateFailed)
		}
	}()

	w := e.task.Resume(s.now)
	e.wait = w
	switch w.kind {
	case waitExit:
		s.setState(e, StateExited)
	case waitDelay:
		e.deadline = s.now.Add(w.delay)
	}
}

func (s *Scheduler) setState(e *entry, st State) {
	e.state = st
	log.Printf("sched: task %s %s", e.task.Name(), st)
	if s.onState != nil {
		s.onState(e.task.Name(), st)
	}
}

// nextDeadline returns the earliest pending delay deadline.
func (s *Scheduler) nextDeadline() (time.Time, bool) {
	var next time.Time
	found := false
	for _, e := range s.entries {
		if e.state != StateRunning || e.wait.kind != waitDelay {
			continue
		}
		if !found || e.deadline.Before(next) {
			next = e.deadline
			found = true
		}
	}
	return next, found
}

// nextWakeup is nextDeadline, pulled in by the input poll interval while any
// task is waiting on a level.
func (s *Scheduler) nextWakeup() (time.Time, bool) {
	next, ok := s.nextDeadline()
	if s.inputPoll <= 0 {
		return next, ok
	}
	for _, e := range s.entries {
		if e.state == StateRunning && e.wait.kind == waitLevel {
			poll := s.now.Add(s.inputPoll)
			if !ok || poll.Before(next) {
				return poll, true
			}
			break
		}
	}
	return next, ok
}
