// Package adc provides one-shot analog-to-digital conversions with hardware
// abstraction: the kernel IIO subsystem, a serial-attached ADC co-processor,
// or a scripted fake for tests.
package adc

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Channel performs one conversion per Read.
type Channel interface {
	// Read performs a conversion and returns the raw count. It may block for
	// the conversion time of the hardware.
	Read() (uint16, error)

	// Close releases the channel.
	Close() error
}

// ErrConversion is wrapped by every conversion failure.
var ErrConversion = errors.New("adc: conversion failed")

// Scale converts raw counts to millivolts.
type Scale struct {
	RefMillivolts float32 // full-scale input voltage at the configured attenuation
	Bits          uint8   // converter resolution
}

// DefaultScale matches a 12-bit converter with ~3.3 V full scale.
var DefaultScale = Scale{RefMillivolts: 3300, Bits: 12}

// Validate checks that the scale can be applied.
func (s Scale) Validate() error {
	if s.Bits < 1 || s.Bits > 16 {
		return fmt.Errorf("adc: resolution %d bits out of range 1..16", s.Bits)
	}
	if s.RefMillivolts <= 0 {
		return fmt.Errorf("adc: reference %v mV must be positive", s.RefMillivolts)
	}
	return nil
}

// Millivolts converts a raw count, rounded to 0.1 mV. Counts above full
// scale are clamped.
func (s Scale) Millivolts(raw uint16) float32 {
	max := uint32(1)<<s.Bits - 1
	r := uint32(raw)
	if r > max {
		r = max
	}
	mv := float32(r) * s.RefMillivolts / float32(max)
	return math32.Round(mv*10) / 10
}
