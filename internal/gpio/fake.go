package gpio

import (
	"sync"
	"time"
)

// Change is a level change recorded by FakeOutput.
type Change struct {
	At    time.Time
	Level Level
}

// FakeOutput is a test double that records every level it is driven to.
type FakeOutput struct {
	mu  sync.Mutex
	now func() time.Time

	// Changes holds one entry per Set call that changed the level.
	Changes []Change

	// Writes counts every Set call, including repeats of the current level.
	Writes int

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool

	level Level
}

// NewFakeOutput creates a FakeOutput, initially low. now timestamps the
// recorded changes; pass nil to leave them zero.
func NewFakeOutput(now func() time.Time) *FakeOutput {
	return &FakeOutput{now: now}
}

// Set records the level.
func (f *FakeOutput) Set(l Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Writes++
	if f.SetError != nil {
		return f.SetError
	}
	if l == f.level && len(f.Changes) > 0 {
		return nil
	}
	f.level = l
	var at time.Time
	if f.now != nil {
		at = f.now()
	}
	f.Changes = append(f.Changes, Change{At: at, Level: l})
	return nil
}

// Level returns the last level driven.
func (f *FakeOutput) Level() Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeInput is a test double whose level is set by the test.
// It starts High (button released).
type FakeInput struct {
	mu    sync.Mutex
	level Level

	// Reads counts Read calls.
	Reads int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeInput creates a released FakeInput.
func NewFakeInput() *FakeInput {
	return &FakeInput{level: High}
}

// SetLevel changes the level returned by Read.
func (f *FakeInput) SetLevel(l Level) {
	f.mu.Lock()
	f.level = l
	f.mu.Unlock()
}

// Read returns the current level.
func (f *FakeInput) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return High, f.ReadError
	}
	return f.level, nil
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
