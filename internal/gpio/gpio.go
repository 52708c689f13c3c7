// Package gpio provides digital line access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is the electrical level of a digital line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Output drives a digital output line.
type Output interface {
	// Set drives the line to the given level.
	Set(Level) error

	// Close releases the line.
	Close() error
}

// Input reads a digital input line.
type Input interface {
	// Read returns the current electrical level. With the pull-up
	// configuration used for the button, Low means pressed.
	Read() (Level, error)

	// Close releases the line.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering).
const (
	DefaultChip       = "gpiochip0"
	DefaultLEDLine    = 17
	DefaultButtonLine = 27
)
