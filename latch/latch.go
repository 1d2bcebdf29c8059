// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package latch provides 8-bit output ports built from real hardware, so the
// LED bar graph and the motor can leave the simulated register bank.
//
// Pins drives one GPIO line per bit. Shift drives a 74HC595 serial to
// parallel shift register over SPI, either a periph spi.Conn on a host or a
// TinyGo drivers.SPI on a microcontroller.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
package latch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Width is the number of lines of a port.
const Width = 8

const allLines gpio.GPIOValue = 1<<Width - 1

// ErrInvalidSetting is returned for a missing bus or too many pins.
var ErrInvalidSetting = errors.New("latch: invalid setting")

// Pins is a port where bit i drives pins[i]. Unwired bits are nil and
// ignored.
type Pins struct {
	mu    sync.Mutex
	pins  []gpio.PinOut
	value gpio.GPIOValue
}

// NewPins returns a port over up to Width pins, lowest bit first.
func NewPins(pins ...gpio.PinOut) (*Pins, error) {
	if len(pins) == 0 || len(pins) > Width {
		return nil, fmt.Errorf("%w: %d pins", ErrInvalidSetting, len(pins))
	}
	return &Pins{pins: pins}, nil
}

func (p *Pins) String() string {
	names := make([]string, len(p.pins))
	for i, pin := range p.pins {
		if pin == nil {
			names[i] = "-"
			continue
		}
		names[i] = pin.Name()
	}
	return "Pins[" + strings.Join(names, " ") + "]"
}

// Halt implements conn.Resource. It drives every line low.
func (p *Pins) Halt() error {
	return p.Out(0, 0)
}

// Out sets the lines selected by mask to the matching bits of value. A zero
// mask selects every line.
func (p *Pins) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = allLines
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, pin := range p.pins {
		bit := gpio.GPIOValue(1) << i
		if mask&bit == 0 || pin == nil {
			continue
		}
		if err := pin.Out(value&bit != 0); err != nil {
			return fmt.Errorf("latch: %s: %w", pin, err)
		}
		p.value = (p.value &^ bit) | (value & bit)
	}
	return nil
}

// Value returns the last state written.
func (p *Pins) Value() gpio.GPIOValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Bus is a write capable SPI bus. periph spi.Conn and TinyGo drivers.SPI
// both implement it.
type Bus interface {
	Tx(w, r []byte) error
}

// Shift is a 74HC595 fed one byte per transaction.
type Shift struct {
	mu    sync.Mutex
	bus   Bus
	value gpio.GPIOValue
	dirty bool
}

// NewShift returns a port on bus. The first Out always reaches the device.
func NewShift(bus Bus) (*Shift, error) {
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalidSetting)
	}
	return &Shift{bus: bus, dirty: true}, nil
}

func (s *Shift) String() string {
	return "74HC595"
}

// Halt implements conn.Resource. It clears all outputs.
func (s *Shift) Halt() error {
	return s.Out(0, 0)
}

// Out shifts the updated byte out. Writes that change nothing are skipped.
func (s *Shift) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = allLines
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := ((s.value &^ mask) | (value & mask)) & allLines
	if v == s.value && !s.dirty {
		return nil
	}
	if err := s.bus.Tx([]byte{byte(v)}, nil); err != nil {
		return fmt.Errorf("latch: 74HC595: %w", err)
	}
	s.value = v
	s.dirty = false
	return nil
}

// Value returns the last byte shifted out.
func (s *Shift) Value() gpio.GPIOValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}
