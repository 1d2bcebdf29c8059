// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package controller wires the knob, the band dispatcher and the stepper
// motor around a PIC18 register bank and runs the sample-actuate loop.
//
// Run configures the peripherals, arms the first conversion and then handles
// conversion-complete notifications one at a time until its context is
// cancelled. Every handled sample and every revolution is published on a
// kelindar/event dispatcher for observers.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kelindar/event"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/knobstep/bands"
	"github.com/GermanBionicSystems/knobstep/pic18"
	"github.com/GermanBionicSystems/knobstep/sampler"
	"github.com/GermanBionicSystems/knobstep/serialout"
	"github.com/GermanBionicSystems/knobstep/stepper"
)

// Board constants.
const (
	// Fosc is the oscillator frequency.
	Fosc = 4 * physic.MegaHertz
	// Baud is the status line speed, 8N1.
	Baud = 9600 * physic.Hertz
	// Channel is the analog input the knob is wired to (AN1).
	Channel = 1
)

// ErrInvalidSetting is returned by New when the bank is missing.
var ErrInvalidSetting = errors.New("controller: invalid setting")

// Opts holds the configuration options.
type Opts struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Events receives Sampled and Revolved. A private dispatcher is created
	// when nil.
	Events *event.Dispatcher
	// Table overrides bands.Default.
	Table *bands.Table
	// Tick is the stepper delay unit. Defaults to stepper.DefaultOpts.Tick.
	Tick time.Duration
	// SerialTimeout bounds the wait for each status byte. Zero waits
	// forever.
	SerialTimeout time.Duration
	// Clock is shared by the motor and the serial line. Defaults to the real
	// clock.
	Clock clockwork.Clock
}

// Controller is the application running on the microcontroller.
type Controller struct {
	bank       *pic18.Bank
	log        *slog.Logger
	events     *event.Dispatcher
	clock      clockwork.Clock
	motor      *stepper.Dev
	serial     *serialout.Dev
	dispatcher *bands.Dispatcher
	sampler    *sampler.Sampler
}

// New builds the controller on top of b. The bank is not touched until Run.
func New(b *pic18.Bank, opts *Opts) (*Controller, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil bank", ErrInvalidSetting)
	}
	if opts == nil {
		opts = &Opts{}
	}
	c := &Controller{bank: b, log: opts.Logger, events: opts.Events, clock: opts.Clock}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.events == nil {
		c.events = event.NewDispatcher()
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	var err error
	if c.motor, err = stepper.New(b.Port(pic18.LATB), &stepper.Opts{Tick: opts.Tick, Clock: c.clock}); err != nil {
		return nil, err
	}
	if c.serial, err = serialout.New(b, &serialout.Opts{Timeout: opts.SerialTimeout, Clock: c.clock}); err != nil {
		return nil, err
	}
	c.dispatcher, err = bands.NewDispatcher(b.Port(pic18.LATD), c.serial, c.motor, &bands.Opts{Table: opts.Table, Logger: c.log})
	if err != nil {
		return nil, err
	}
	if c.sampler, err = sampler.New(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) String() string {
	return "knobstep on " + c.bank.String()
}

// Halt implements conn.Resource.
//
// It releases the motor coils and powers the converter down.
func (c *Controller) Halt() error {
	return errors.Join(c.motor.Halt(), c.bank.Halt())
}

// Events returns the dispatcher Sampled and Revolved are published on.
func (c *Controller) Events() *event.Dispatcher {
	return c.events
}

// Table returns the band table in use.
func (c *Controller) Table() bands.Table {
	return c.dispatcher.Table()
}

// Run configures the bank, arms the first conversion and handles
// notifications until ctx is done, returning ctx.Err().
//
// Handling happens on the calling goroutine, so it is never reentrant. A
// revolution in progress is not interrupted by cancellation.
func (c *Controller) Run(ctx context.Context) error {
	if err := Setup(c.bank); err != nil {
		return err
	}
	c.log.Info("controller started", "bank", c.bank.String())
	if err := c.sampler.Start(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			c.log.Info("controller stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-c.bank.IRQ():
			c.handle()
		}
	}
}

// handle services one conversion-complete notification.
func (c *Controller) handle() {
	r, err := c.sampler.OnConversionComplete()
	if err != nil {
		c.log.Error("sample", "raw", r.Raw, "error", err)
	} else {
		c.log.Debug("sample", "raw", r.Raw, "count", r.Count, "pct", r.Percent, "band", r.Band.Index)
	}
	event.Publish(c.events, Sampled{Reading: r, Err: err, At: c.clock.Now()})
}

// Dispatch implements sampler.Handler. It times the revolution and publishes
// it.
func (c *Controller) Dispatch(pct float64) (bands.Band, error) {
	start := c.clock.Now()
	b, err := c.dispatcher.Dispatch(pct)
	event.Publish(c.events, Revolved{Band: b, Took: c.clock.Since(start), Err: err})
	return b, err
}
