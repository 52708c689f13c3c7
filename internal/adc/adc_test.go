package adc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleMillivolts(t *testing.T) {
	tests := []struct {
		name  string
		scale Scale
		raw   uint16
		want  float32
	}{
		{"zero", DefaultScale, 0, 0},
		{"full scale", DefaultScale, 4095, 3300},
		{"mid scale", DefaultScale, 2048, 1650.4},
		{"clamped", Scale{RefMillivolts: 3300, Bits: 10}, 2000, 3300},
		{"16 bit", Scale{RefMillivolts: 1000, Bits: 16}, 65535, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.scale.Millivolts(tt.raw), 0.05)
		})
	}
}

func TestScaleValidate(t *testing.T) {
	assert.NoError(t, DefaultScale.Validate())
	assert.Error(t, Scale{RefMillivolts: 3300, Bits: 0}.Validate())
	assert.Error(t, Scale{RefMillivolts: 3300, Bits: 17}.Validate())
	assert.Error(t, Scale{RefMillivolts: 0, Bits: 12}.Validate())
}

func TestIIOChannel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in_voltage2_raw")
	require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0o644))

	c, err := NewIIOChannel(dir, 2)
	require.NoError(t, err)

	v, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), v)

	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o644))
	_, err = c.Read()
	assert.ErrorIs(t, err, ErrConversion)

	require.NoError(t, os.Remove(path))
	_, err = c.Read()
	assert.ErrorIs(t, err, ErrConversion)

	assert.NoError(t, c.Close())
}

func TestIIOChannelMissing(t *testing.T) {
	_, err := NewIIOChannel(t.TempDir(), 0)
	assert.Error(t, err)
}

// fakePort answers each request with the next scripted response.
type fakePort struct {
	responses [][]byte
	pending   []byte
	written   bytes.Buffer
	resets    int
	writeErr  error
	closed    bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written.Write(b)
	if len(p.responses) > 0 {
		p.pending = p.responses[0]
		p.responses = p.responses[1:]
	}
	return len(b), nil
}

// Read hands out at most 3 bytes at a time to exercise line assembly; an
// empty pending buffer behaves like a serial read timeout.
func (p *fakePort) Read(b []byte) (int, error) {
	n := copy(b[:min(len(b), 3)], p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	p.pending = nil
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialChannelRead(t *testing.T) {
	p := &fakePort{responses: [][]byte{[]byte("3071\r\n"), []byte("12\n")}}
	c := &SerialChannel{port: p}

	v, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, uint16(3071), v)

	v, err = c.Read()
	require.NoError(t, err)
	assert.Equal(t, uint16(12), v)

	assert.Equal(t, "R\nR\n", p.written.String())
	assert.Equal(t, 2, p.resets)
}

func TestSerialChannelTimeout(t *testing.T) {
	c := &SerialChannel{port: &fakePort{}}

	_, err := c.Read()
	assert.ErrorIs(t, err, ErrConversion)
	assert.Contains(t, err.Error(), "no response")
}

func TestSerialChannelOverlongResponse(t *testing.T) {
	long := bytes.Repeat([]byte("9"), maxResponse+5)
	c := &SerialChannel{port: &fakePort{responses: [][]byte{long}}}

	_, err := c.Read()
	assert.ErrorIs(t, err, ErrConversion)
}

func TestSerialChannelBadResponse(t *testing.T) {
	c := &SerialChannel{port: &fakePort{responses: [][]byte{[]byte("ERR\n")}}}

	_, err := c.Read()
	assert.ErrorIs(t, err, ErrConversion)
}

func TestSerialChannelWriteError(t *testing.T) {
	c := &SerialChannel{port: &fakePort{writeErr: errors.New("unplugged")}}

	_, err := c.Read()
	assert.ErrorIs(t, err, ErrConversion)
	assert.Contains(t, err.Error(), "unplugged")
}

func TestSerialChannelClose(t *testing.T) {
	p := &fakePort{}
	c := &SerialChannel{port: p}
	require.NoError(t, c.Close())
	assert.True(t, p.closed)
}

func TestFakeChannel(t *testing.T) {
	f := NewFakeChannel(10, 20)

	v, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, uint16(10), v)

	v, _ = f.Read()
	assert.Equal(t, uint16(20), v)

	// Exhausted: repeats the last sample.
	v, _ = f.Read()
	assert.Equal(t, uint16(20), v)
}

func TestFakeChannelFailAfter(t *testing.T) {
	f := NewFakeChannel(1)
	f.FailAfter = 2

	_, err := f.Read()
	require.NoError(t, err)
	_, err = f.Read()
	require.NoError(t, err)
	_, err = f.Read()
	assert.ErrorIs(t, err, ErrConversion)
	assert.Equal(t, 3, f.Reads)
}

func TestFakeChannelNoSamples(t *testing.T) {
	_, err := NewFakeChannel().Read()
	assert.Error(t, err)
}
