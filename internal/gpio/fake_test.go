package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeOutputRecordsChanges(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := NewFakeOutput(clock)

	f.Set(Low)
	now = now.Add(500 * time.Millisecond)
	f.Set(High)
	f.Set(High) // repeat, not a change
	now = now.Add(100 * time.Millisecond)
	f.Set(Low)

	if f.Writes != 4 {
		t.Errorf("expected 4 writes, got %d", f.Writes)
	}
	if len(f.Changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(f.Changes))
	}
	if f.Changes[1].Level != High {
		t.Errorf("change 1: expected HIGH, got %s", f.Changes[1].Level)
	}
	if got := f.Changes[2].At.Sub(f.Changes[1].At); got != 100*time.Millisecond {
		t.Errorf("high pulse: expected 100ms, got %v", got)
	}
	if f.Level() != Low {
		t.Errorf("expected final level LOW, got %s", f.Level())
	}
}

func TestFakeOutputError(t *testing.T) {
	f := NewFakeOutput(nil)
	f.SetError = errors.New("simulated error")

	if err := f.Set(High); err == nil {
		t.Error("expected error to be returned")
	}
	if len(f.Changes) != 0 {
		t.Errorf("expected no changes on error, got %d", len(f.Changes))
	}
}

func TestFakeInputDefaultsReleased(t *testing.T) {
	f := NewFakeInput()

	l, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != High {
		t.Errorf("expected HIGH, got %s", l)
	}
}

func TestFakeInputSetLevel(t *testing.T) {
	f := NewFakeInput()
	f.SetLevel(Low)

	l, _ := f.Read()
	if l != Low {
		t.Errorf("expected LOW, got %s", l)
	}
	if f.Reads != 1 {
		t.Errorf("expected 1 read, got %d", f.Reads)
	}
}

func TestFakeInputError(t *testing.T) {
	f := NewFakeInput()
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeClose(t *testing.T) {
	out := NewFakeOutput(nil)
	in := NewFakeInput()

	if err := out.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !out.Closed || !in.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestLevelString(t *testing.T) {
	if Low.String() != "LOW" || High.String() != "HIGH" {
		t.Errorf("unexpected strings: %s %s", Low, High)
	}
}
