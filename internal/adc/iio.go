package adc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultIIODevice is the first IIO device on a typical Linux board.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// IIOChannel reads a voltage channel through the Linux IIO sysfs interface.
// Every read of in_voltageN_raw triggers one conversion in the driver.
type IIOChannel struct {
	path string
}

// NewIIOChannel opens channel n of the IIO device at dir.
func NewIIOChannel(dir string, n int) (*IIOChannel, error) {
	path := filepath.Join(dir, fmt.Sprintf("in_voltage%d_raw", n))
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open iio channel: %w", err)
	}
	return &IIOChannel{path: path}, nil
}

// Read performs one conversion.
func (c *IIOChannel) Read() (uint16, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return parseRaw(string(data))
}

// Close is a no-op; sysfs reads hold no descriptor between calls.
func (c *IIOChannel) Close() error {
	return nil
}

func parseRaw(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: bad reading %q", ErrConversion, strings.TrimSpace(s))
	}
	return uint16(v), nil
}
