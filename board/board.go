// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build tinygo

package board

import (
	"errors"
	"log/slog"
	"machine"
	"time"

	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"

	"github.com/GermanBionicSystems/knobstep/bands"
	"github.com/GermanBionicSystems/knobstep/latch"
	"github.com/GermanBionicSystems/knobstep/sampler"
	"github.com/GermanBionicSystems/knobstep/serialout"
	"github.com/GermanBionicSystems/knobstep/stepper"
)

// Config is the board wiring.
type Config struct {
	// Knob is the potentiometer input.
	Knob machine.ADC
	// UART carries the status text at 9600 bps.
	UART *machine.UART
	// LEDBus drives a 74HC595 bar graph. When nil, LEDPins is used.
	LEDBus drivers.SPI
	// LEDPins are the bar graph lines, bit 0 first. machine.NoPin skips one.
	LEDPins [8]machine.Pin
	// Coils are the motor lines 7, 6, 5 and 4.
	Coils [4]machine.Pin
	// Tick is the step delay unit. Defaults to stepper.FirmwareTick.
	Tick time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run configures the peripherals and runs the sample-actuate loop forever.
// It only returns on a setup error.
func Run(cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.UART == nil {
		return errors.New("board: no UART")
	}
	if err := cfg.UART.Configure(machine.UARTConfig{BaudRate: 9600}); err != nil {
		return err
	}
	machine.InitADC()
	cfg.Knob.Configure(machine.ADCConfig{Resolution: 10})

	var leds bands.Latch
	if cfg.LEDBus != nil {
		s, err := latch.NewShift(cfg.LEDBus)
		if err != nil {
			return err
		}
		leds = s
	} else {
		leds = newPinLatch(cfg.LEDPins[:], 0)
	}
	coils := newPinLatch([]machine.Pin{cfg.Coils[3], cfg.Coils[2], cfg.Coils[1], cfg.Coils[0]}, 4)

	tick := cfg.Tick
	if tick == 0 {
		tick = stepper.FirmwareTick
	}
	motor, err := stepper.New(coils, &stepper.Opts{Tick: tick})
	if err != nil {
		return err
	}
	status, err := serialout.New(&uartTx{u: cfg.UART}, nil)
	if err != nil {
		return err
	}
	d, err := bands.NewDispatcher(leds, status, motor, &bands.Opts{Logger: log})
	if err != nil {
		return err
	}
	s, err := sampler.New(&adc{a: cfg.Knob}, d)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	for {
		if r, err := s.OnConversionComplete(); err != nil {
			log.Error("sample", "raw", r.Raw, "error", err)
		}
	}
}

// adc converts synchronously when armed. machine.ADC returns 16-bit samples.
type adc struct {
	a    machine.ADC
	last uint16
}

func (a *adc) StartConversion() error {
	a.last = a.a.Get() >> 6
	return nil
}

func (a *adc) ReadResult() (uint16, error) {
	return a.last, nil
}

func (a *adc) ClearADIF() error {
	return nil
}

// pinLatch maps port bit first+i to pins[i].
type pinLatch struct {
	pins  []machine.Pin
	first int
}

func newPinLatch(pins []machine.Pin, first int) *pinLatch {
	for _, p := range pins {
		if p != machine.NoPin {
			p.Configure(machine.PinConfig{Mode: machine.PinOutput})
			p.Low()
		}
	}
	return &pinLatch{pins: pins, first: first}
}

func (l *pinLatch) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = 0xFF
	}
	for i, p := range l.pins {
		bit := gpio.GPIOValue(1) << (l.first + i)
		if mask&bit == 0 || p == machine.NoPin {
			continue
		}
		p.Set(value&bit != 0)
	}
	return nil
}

// uartTx completes as soon as the byte is queued.
type uartTx struct {
	u    *machine.UART
	done bool
}

func (t *uartTx) ClearTXIF() error {
	t.done = false
	return nil
}

func (t *uartTx) WriteTXREG(c byte) error {
	if err := t.u.WriteByte(c); err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *uartTx) TXIF() bool {
	return t.done
}
