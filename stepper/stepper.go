// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stepper drives a unipolar stepper motor wired to four consecutive
// lines of an 8-bit port, one coil energized at a time.
//
// The motor is run open loop: the only speed control is the time held
// between two phase updates.
package stepper

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
)

const (
	// StepsPerRevolution is the number of 5° steps in a full turn.
	StepsPerRevolution = 72
	// StepAngle is the rotor travel of one step, in degrees.
	StepAngle = 5
	// PhaseUpdates is the number of coil writes in one revolution: the
	// starting phase plus one per step.
	PhaseUpdates = StepsPerRevolution + 1

	// Mask selects the motor lines 7..4 of the port.
	Mask gpio.GPIOValue = 0xF0

	firstPhase gpio.GPIOValue = 1 << 7
	lastPhase  gpio.GPIOValue = 1 << 4
)

// FirmwareTick is the length of one delay unit on the original board, where
// a step delay of n meant n back to back 5 ms busy waits.
const FirmwareTick = 5 * time.Millisecond

// ErrInvalidSetting is returned for a nil port or a negative delay.
var ErrInvalidSetting = errors.New("stepper: invalid setting")

// Latch is the output port the coils are wired to. Only the bits in mask
// are changed.
type Latch interface {
	Out(value, mask gpio.GPIOValue) error
}

// Opts holds the configuration options.
type Opts struct {
	// Tick is the duration of one delay unit.
	Tick time.Duration
	// Clock provides the blocking sleep between steps. Defaults to the real
	// clock.
	Clock clockwork.Clock
}

// DefaultOpts counts step delays in milliseconds.
var DefaultOpts = Opts{Tick: time.Millisecond}

// Dev is a stepper motor on one port nibble.
type Dev struct {
	port  Latch
	clock clockwork.Clock
	tick  time.Duration

	mu    sync.Mutex
	phase gpio.GPIOValue
}

// New returns a motor driver writing its phases to port.
func New(port Latch, opts *Opts) (*Dev, error) {
	if port == nil {
		return nil, fmt.Errorf("%w: nil port", ErrInvalidSetting)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{port: port, clock: opts.Clock, tick: opts.Tick}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.tick <= 0 {
		d.tick = DefaultOpts.Tick
	}
	return d, nil
}

func (d *Dev) String() string {
	return "unipolar stepper"
}

// Halt implements conn.Resource.
//
// It de-energizes all four coils.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phase = 0
	return d.port.Out(0, Mask)
}

// Phase returns the port bit currently energized, or 0 when idle after Halt.
func (d *Dev) Phase() gpio.GPIOValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// StepDuration returns how long one step lasts for a given delay.
func (d *Dev) StepDuration(delay int) time.Duration {
	return time.Duration(delay) * d.tick
}

// RotateOneRevolution turns the rotor 360°, starting from line 7 and
// holding every phase for delay ticks.
//
// It blocks for PhaseUpdates*delay ticks and cannot be interrupted.
func (d *Dev) RotateOneRevolution(delay int) error {
	if delay < 0 {
		return fmt.Errorf("%w: negative delay %d", ErrInvalidSetting, delay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	wait := d.StepDuration(delay)
	d.phase = firstPhase
	for step := 0; step <= StepsPerRevolution; step++ {
		if step > 0 {
			d.phase = next(d.phase)
		}
		if err := d.port.Out(d.phase, Mask); err != nil {
			return fmt.Errorf("stepper: step %d: %w", step, err)
		}
		if wait > 0 {
			d.clock.Sleep(wait)
		}
	}
	return nil
}

// next returns the phase after p. The check against line 4 happens before
// shifting so the active bit never leaves the motor nibble.
func next(p gpio.GPIOValue) gpio.GPIOValue {
	if p == lastPhase {
		return firstPhase
	}
	return p >> 1
}
