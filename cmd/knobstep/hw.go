// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/knobstep/controller"
	"github.com/GermanBionicSystems/knobstep/latch"
	"github.com/GermanBionicSystems/knobstep/pic18"
	"github.com/GermanBionicSystems/knobstep/serialout"
)

// closers releases everything opened for a run, last opened first.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i].Close())
	}
	return errors.Join(errs...)
}

// openSerial returns where status bytes go: a host serial port, a periph
// UART, or nil when neither is configured.
func openSerial(cfg *config, cl *closers) (io.Writer, error) {
	switch {
	case cfg.Serial.Port != "":
		p, err := serial.Open(cfg.Serial.Port, &serial.Mode{
			BaudRate: int(controller.Baud / physic.Hertz),
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", cfg.Serial.Port, err)
		}
		*cl = append(*cl, p)
		return p, nil
	case cfg.Serial.UART:
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		p, err := uartreg.Open("")
		if err != nil {
			return nil, err
		}
		*cl = append(*cl, p)
		c, err := p.Connect(controller.Baud, uart.One, uart.NoParity, uart.NoFlow, 8)
		if err != nil {
			return nil, err
		}
		return serialout.NewConn(c, &serialout.Opts{Timeout: cfg.Serial.Timeout.Duration})
	}
	return nil, nil
}

// pinsByName resolves names into a port with name i on bit first+i.
func pinsByName(names []string, first int) (*latch.Pins, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	pins := make([]gpio.PinOut, first+len(names))
	for i, n := range names {
		if n == "" {
			continue
		}
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("no GPIO pin %q", n)
		}
		pins[first+i] = p
	}
	return latch.NewPins(pins...)
}

// openLEDs returns the hardware bar graph, if configured.
func openLEDs(cfg *config, cl *closers) (pic18.Latch, error) {
	if cfg.GPIO.SPI != "" {
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		p, err := spireg.Open(cfg.GPIO.SPI)
		if err != nil {
			return nil, err
		}
		*cl = append(*cl, p)
		c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
		if err != nil {
			return nil, err
		}
		return latch.NewShift(c)
	}
	if len(cfg.GPIO.LEDs) > 0 {
		return pinsByName(cfg.GPIO.LEDs, 0)
	}
	return nil, nil
}

// openCoils returns the hardware motor port, if configured.
func openCoils(cfg *config) (pic18.Latch, error) {
	if len(cfg.GPIO.Coils) == 0 {
		return nil, nil
	}
	if len(cfg.GPIO.Coils) != 4 {
		return nil, fmt.Errorf("want 4 coil pins, got %d", len(cfg.GPIO.Coils))
	}
	// Listed from line 7 down; the port wants bit order.
	names := []string{cfg.GPIO.Coils[3], cfg.GPIO.Coils[2], cfg.GPIO.Coils[1], cfg.GPIO.Coils[0]}
	return pinsByName(names, 4)
}

// fanout mirrors a latch to several outputs.
type fanout []pic18.Latch

func (f fanout) Out(value, mask gpio.GPIOValue) error {
	var errs []error
	for _, l := range f {
		errs = append(errs, l.Out(value, mask))
	}
	return errors.Join(errs...)
}

// join returns a single latch over the non-nil outputs, or nil.
func join(ls ...pic18.Latch) pic18.Latch {
	var f fanout
	for _, l := range ls {
		if l != nil {
			f = append(f, l)
		}
	}
	switch len(f) {
	case 0:
		return nil
	case 1:
		return f[0]
	}
	return f
}
