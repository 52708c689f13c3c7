package adc

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the co-processor link speed.
	DefaultBaudRate = 115200

	// serialTimeout bounds each read of one request/response exchange.
	serialTimeout = 200 * time.Millisecond

	// maxResponse bounds a response line; a 16-bit count plus CRLF fits easily.
	maxResponse = 32
)

// readRequest asks the co-processor for one conversion.
var readRequest = []byte("R\n")

// port is the subset of serial.Port used here.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// SerialChannel talks to an ADC co-processor (e.g. a small MCU) over a serial
// link. Each Read sends "R\n" and expects one decimal line back.
type SerialChannel struct {
	port port
	buf  [maxResponse]byte
}

// NewSerialChannel opens the serial port at the given baud rate.
func NewSerialChannel(name string, baudRate int) (*SerialChannel, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(serialTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &SerialChannel{port: p}, nil
}

// Read requests and parses one conversion.
func (c *SerialChannel) Read() (uint16, error) {
	// Drop anything left over from an earlier timed-out exchange.
	if err := c.port.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("%w: reset input: %v", ErrConversion, err)
	}
	if _, err := c.port.Write(readRequest); err != nil {
		return 0, fmt.Errorf("%w: write request: %v", ErrConversion, err)
	}
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	return parseRaw(line)
}

// readLine reads up to the first newline. go.bug.st/serial reports a read
// timeout as a zero-length read with no error.
func (c *SerialChannel) readLine() (string, error) {
	n := 0
	for n < len(c.buf) {
		m, err := c.port.Read(c.buf[n:])
		if err != nil {
			return "", fmt.Errorf("%w: read response: %v", ErrConversion, err)
		}
		if m == 0 {
			return "", fmt.Errorf("%w: no response within %v", ErrConversion, serialTimeout)
		}
		if i := bytes.IndexByte(c.buf[n:n+m], '\n'); i >= 0 {
			return string(c.buf[:n+i]), nil
		}
		n += m
	}
	return "", fmt.Errorf("%w: response exceeds %d bytes", ErrConversion, maxResponse)
}

// Close closes the serial port.
func (c *SerialChannel) Close() error {
	return c.port.Close()
}
