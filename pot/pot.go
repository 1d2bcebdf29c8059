// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pot provides simulated potentiometers wired to a 10-bit A/D
// converter input.
//
// Both sources implement analog.PinADC so they can be plugged wherever a
// real converter pin would go.
package pot

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// MaxRaw is the full scale reading of a 10-bit converter.
const MaxRaw = 1023

// Vref is the reference voltage (Vdd) the wiper swings up to.
const Vref = 5 * physic.Volt

// FromPercent converts a wiper position in percent into a raw reading.
func FromPercent(pct float64) int32 {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return MaxRaw
	}
	return int32(math.Round(pct * MaxRaw / 100))
}

func sample(raw int32) analog.Sample {
	return analog.Sample{V: Vref * physic.ElectricPotential(raw) / MaxRaw, Raw: raw}
}

type base struct {
	name string
	num  int
}

func (b *base) String() string {
	return fmt.Sprintf("%s(%d)", b.name, b.num)
}

// Halt implements conn.Resource.
func (b *base) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (b *base) Name() string {
	return b.name
}

// Number implements pin.Pin.
func (b *base) Number() int {
	return b.num
}

// Function implements pin.Pin.
func (b *base) Function() string {
	return "ADC"
}

// Range implements analog.PinADC.
func (b *base) Range() (analog.Sample, analog.Sample) {
	return sample(0), sample(MaxRaw)
}

// Fixed is a potentiometer that stays where it was last set.
type Fixed struct {
	base

	mu  sync.Mutex
	raw int32
	err error
}

// NewFixed returns a potentiometer on analog channel num, initially at raw.
func NewFixed(name string, num int, raw int32) *Fixed {
	return &Fixed{base: base{name: name, num: num}, raw: raw}
}

// Set moves the wiper to a raw position.
func (f *Fixed) Set(raw int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = raw
	f.err = nil
}

// SetPercent moves the wiper to pct percent of its travel.
func (f *Fixed) SetPercent(pct float64) {
	f.Set(FromPercent(pct))
}

// Fail makes every following Read return err until the next Set.
func (f *Fixed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Read implements analog.PinADC.
func (f *Fixed) Read() (analog.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return analog.Sample{}, f.err
	}
	return sample(f.raw), nil
}

// Sweep is a potentiometer turned back and forth continuously: the reading
// rises from 0 to full scale during the first half of Period and falls back
// during the second half.
type Sweep struct {
	base

	period time.Duration
	clock  clockwork.Clock
	start  time.Time
}

// NewSweep returns a sweeping potentiometer. A nil clock uses the real one.
func NewSweep(name string, num int, period time.Duration, clock clockwork.Clock) *Sweep {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweep{base: base{name: name, num: num}, period: period, clock: clock, start: clock.Now()}
}

// Read implements analog.PinADC.
func (s *Sweep) Read() (analog.Sample, error) {
	if s.period <= 0 {
		return sample(0), nil
	}
	phase := float64(s.clock.Since(s.start)%s.period) / float64(s.period)
	tri := 2 * phase
	if phase >= 0.5 {
		tri = 2 - 2*phase
	}
	return sample(int32(math.Round(tri * MaxRaw))), nil
}

var _ analog.PinADC = &Fixed{}
var _ analog.PinADC = &Sweep{}
