// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package latch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
	"tinygo.org/x/drivers"
)

var (
	_ Bus = spi.Conn(nil)
	_ Bus = drivers.SPI(nil)
)

func levels(pins []*gpiotest.Pin) []gpio.Level {
	out := make([]gpio.Level, len(pins))
	for i, p := range pins {
		out[i] = p.L
	}
	return out
}

func TestPins(t *testing.T) {
	var fakes []*gpiotest.Pin
	var outs []gpio.PinOut
	for i := range Width {
		p := &gpiotest.Pin{N: "GPIO" + string(rune('0'+i)), Num: i}
		fakes = append(fakes, p)
		outs = append(outs, p)
	}
	p, err := NewPins(outs...)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Out(0x1F, 0); err != nil {
		t.Fatal(err)
	}
	// Only the motor nibble changes.
	if err := p.Out(0x80, 0xF0); err != nil {
		t.Fatal(err)
	}
	want := []gpio.Level{gpio.High, gpio.High, gpio.High, gpio.High, gpio.Low, gpio.Low, gpio.Low, gpio.High}
	if diff := cmp.Diff(levels(fakes), want); diff != "" {
		t.Errorf("levels (-got +want):\n%s", diff)
	}
	if p.Value() != 0x8F {
		t.Errorf("Value() = %#x", p.Value())
	}
	if err := p.Halt(); err != nil {
		t.Fatal(err)
	}
	if p.Value() != 0 || fakes[7].L != gpio.Low {
		t.Errorf("Halt left %#x", p.Value())
	}
}

func TestPinsUnwired(t *testing.T) {
	hi := &gpiotest.Pin{N: "GPIO4"}
	p, err := NewPins(nil, nil, nil, nil, hi)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Out(0xFF, 0); err != nil {
		t.Fatal(err)
	}
	if hi.L != gpio.High || p.Value() != 0x10 {
		t.Errorf("level %v value %#x", hi.L, p.Value())
	}
	if p.String() != "Pins[- - - - GPIO4]" {
		t.Errorf("String() = %q", p.String())
	}
}

func TestPinsInvalid(t *testing.T) {
	if _, err := NewPins(); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("NewPins() = %v", err)
	}
	if _, err := NewPins(make([]gpio.PinOut, Width+1)...); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("NewPins(9) = %v", err)
	}
}

func TestShift(t *testing.T) {
	rec := &spitest.Record{}
	defer rec.Close()
	c, err := rec.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewShift(c)
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range []struct{ value, mask gpio.GPIOValue }{
		{0x00, 0},    // first write always goes out
		{0x00, 0},    // unchanged
		{0x07, 0xFF}, // LEDs
		{0x80, 0xF0}, // motor nibble
		{0x80, 0xF0}, // unchanged
	} {
		if err := s.Out(op.value, op.mask); err != nil {
			t.Fatal(err)
		}
	}
	var got []byte
	for _, io := range rec.Ops {
		got = append(got, io.W...)
	}
	if diff := cmp.Diff(got, []byte{0x00, 0x07, 0x87}); diff != "" {
		t.Errorf("bytes (-got +want):\n%s", diff)
	}
}

func TestShiftError(t *testing.T) {
	pb := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	defer pb.Close()
	c, err := pb.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewShift(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Out(1, 0); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewShift(nil); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("NewShift(nil) = %v", err)
	}
}
