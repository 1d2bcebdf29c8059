// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bands

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
)

// ErrInvalidSetting is returned by NewDispatcher when a collaborator is
// missing or the table is invalid.
var ErrInvalidSetting = errors.New("bands: invalid setting")

// LEDMask selects the eight bar graph lines.
const LEDMask gpio.GPIOValue = 0xFF

// Latch is the LED bar graph port.
type Latch interface {
	Out(value, mask gpio.GPIOValue) error
}

// StatusWriter sends a status string, blocking until it is out.
type StatusWriter interface {
	SendString(s string) error
}

// Motor runs one full revolution at the given step delay.
type Motor interface {
	RotateOneRevolution(delay int) error
}

// Opts holds the configuration options.
type Opts struct {
	// Table overrides Default when set.
	Table *Table
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Dispatcher actuates the outputs for a knob position.
type Dispatcher struct {
	leds   Latch
	status StatusWriter
	motor  Motor
	table  Table
	log    *slog.Logger
}

// NewDispatcher returns a Dispatcher driving the given outputs.
func NewDispatcher(leds Latch, status StatusWriter, motor Motor, opts *Opts) (*Dispatcher, error) {
	if leds == nil || status == nil || motor == nil {
		return nil, fmt.Errorf("%w: missing output", ErrInvalidSetting)
	}
	d := &Dispatcher{leds: leds, status: status, motor: motor, table: Default, log: slog.Default()}
	if opts != nil {
		if opts.Table != nil {
			if err := opts.Table.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
			}
			d.table = *opts.Table
		}
		if opts.Logger != nil {
			d.log = opts.Logger
		}
	}
	return d, nil
}

// Table returns the band table in use.
func (d *Dispatcher) Table() Table {
	return d.table
}

// Dispatch selects the band for pct, then in order lights its LED pattern,
// sends its status string if any and runs the motor for one revolution.
//
// The three outputs are independent: a failure on one does not skip the
// others. Errors are joined. Dispatch blocks for the whole revolution.
func (d *Dispatcher) Dispatch(pct float64) (Band, error) {
	if !InRange(pct) {
		d.log.Warn("percentage out of range", "pct", pct)
	}
	b := d.table.Select(pct)
	d.log.Debug("dispatch", "pct", pct, "band", b.Index, "delay", b.StepDelay)

	var errs []error
	if err := d.leds.Out(gpio.GPIOValue(b.LEDs), LEDMask); err != nil {
		errs = append(errs, fmt.Errorf("bands: leds: %w", err))
	}
	if b.Status != "" {
		if err := d.status.SendString(b.Status); err != nil {
			errs = append(errs, fmt.Errorf("bands: status: %w", err))
		}
	}
	if err := d.motor.RotateOneRevolution(b.StepDelay); err != nil {
		errs = append(errs, fmt.Errorf("bands: motor: %w", err))
	}
	return b, errors.Join(errs...)
}
