package adc

import (
	"errors"
	"sync"
)

// FakeChannel is a test double that returns scripted readings.
type FakeChannel struct {
	mu sync.Mutex

	// Samples contains scripted readings. Each Read consumes the next one;
	// once exhausted the last is returned repeatedly.
	Samples []uint16

	// FailAfter, if > 0, makes every Read after that many successful reads
	// fail with ErrConversion.
	FailAfter int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Reads counts Read calls, successful or not.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	index int
	ok    int
}

// NewFakeChannel creates a FakeChannel with the given samples.
func NewFakeChannel(samples ...uint16) *FakeChannel {
	return &FakeChannel{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeChannel) Read() (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if f.FailAfter > 0 && f.ok >= f.FailAfter {
		return 0, ErrConversion
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	f.ok++
	return v, nil
}

// Close marks the channel as closed.
func (f *FakeChannel) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
