//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives an LED line through the Linux GPIO character device.
type RealOutput struct {
	line *gpiocdev.Line
}

// NewRealOutput requests the line as an output, initially low.
func NewRealOutput(chip string, offset int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output %s:%d: %w", chip, offset, err)
	}
	return &RealOutput{line: line}, nil
}

// Set drives the line.
func (o *RealOutput) Set(l Level) error {
	v := 0
	if l == High {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set output: %w", err)
	}
	return nil
}

// Close drives the line low, then reconfigures it as an input so the LED is
// not left lit after shutdown.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive low: %w", err))
	}
	if err := o.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close output: %v", errs)
	}
	return nil
}

// RealInput reads a push-button line with the internal pull-up enabled, so
// the released button reads High and a press reads Low.
type RealInput struct {
	line *gpiocdev.Line
}

// NewRealInput requests the line as an input with pull-up and both-edge
// detection. onEdge, if non-nil, is called from the gpiocdev event goroutine
// on every edge; it must not block.
func NewRealInput(chip string, offset int, onEdge func()) (*RealInput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if onEdge != nil {
		opts = append(opts,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }),
		)
	}
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input %s:%d: %w", chip, offset, err)
	}
	return &RealInput{line: line}, nil
}

// Read returns the current line level.
func (i *RealInput) Read() (Level, error) {
	v, err := i.line.Value()
	if err != nil {
		return High, fmt.Errorf("read input: %w", err)
	}
	return Level(v != 0), nil
}

// Close releases the line.
func (i *RealInput) Close() error {
	if err := i.line.Close(); err != nil {
		return fmt.Errorf("close input: %w", err)
	}
	return nil
}
