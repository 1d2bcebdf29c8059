// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bands maps a knob position, expressed as a percentage, to one of
// eight speed bands and actuates the LED bar graph, the status line and the
// stepper motor for it.
//
// Bands are right-inclusive: band 0 covers [0, 12.5], band k covers
// (12.5k, 12.5(k+1)] and band 7 covers everything above 87.5. A position
// sitting exactly on a boundary therefore selects the slower band.
package bands

import (
	"errors"
	"fmt"
	"math"
)

// Count is the number of bands.
const Count = 8

// Width is the percentage span of one band.
const Width = 100.0 / Count

// Status strings sent at the two extreme bands. The trailing carriage return
// is part of the wire format; there is no line feed.
const (
	StatusMin = "Velocidade Minima \r"
	StatusMax = "Velocidade Maxima \r"
)

// ErrInvalidTable is returned when a band table breaks the ordering rules.
var ErrInvalidTable = errors.New("bands: invalid table")

// Band is one speed band.
type Band struct {
	// Index is the band position, 0 (slowest) to 7 (fastest).
	Index int `toml:"-"`
	// LEDs is the bar graph pattern: the low Index+1 bits set.
	LEDs uint8 `toml:"leds"`
	// StepDelay is the motor step delay in clock ticks. Lower is faster.
	StepDelay int `toml:"step_delay"`
	// Status is sent on the serial line when the band is selected, if set.
	Status string `toml:"status"`
}

func (b Band) String() string {
	return fmt.Sprintf("band %d (%s, leds=%08b, delay=%d)", b.Index, b.Range(), b.LEDs, b.StepDelay)
}

// Lower returns the exclusive lower bound of the band. Band 0 includes it.
func (b Band) Lower() float64 {
	return Width * float64(b.Index)
}

// Upper returns the inclusive upper bound of the band.
func (b Band) Upper() float64 {
	return Width * float64(b.Index+1)
}

// Range formats the percentage interval covered by the band.
func (b Band) Range() string {
	if b.Index == 0 {
		return fmt.Sprintf("[%g, %g]", b.Lower(), b.Upper())
	}
	return fmt.Sprintf("(%g, %g]", b.Lower(), b.Upper())
}

// Table is a complete set of bands, slowest first.
type Table [Count]Band

// Default is the table compiled into the firmware.
var Default = Table{
	{Index: 0, LEDs: 0x01, StepDelay: 30, Status: StatusMin},
	{Index: 1, LEDs: 0x03, StepDelay: 26},
	{Index: 2, LEDs: 0x07, StepDelay: 23},
	{Index: 3, LEDs: 0x0F, StepDelay: 20},
	{Index: 4, LEDs: 0x1F, StepDelay: 18},
	{Index: 5, LEDs: 0x3F, StepDelay: 15},
	{Index: 6, LEDs: 0x7F, StepDelay: 13},
	{Index: 7, LEDs: 0xFF, StepDelay: 10, Status: StatusMax},
}

// NewTable builds a table from exactly Count bands listed slowest first. The
// indexes are assigned from the position.
func NewTable(bs []Band) (Table, error) {
	var t Table
	if len(bs) != Count {
		return t, fmt.Errorf("%w: %d bands, want %d", ErrInvalidTable, len(bs), Count)
	}
	copy(t[:], bs)
	for i := range t {
		t[i].Index = i
	}
	return t, t.Validate()
}

// Validate checks that indexes follow the position, LED patterns are
// cumulative and step delays strictly decrease.
func (t *Table) Validate() error {
	for i, b := range t {
		if b.Index != i {
			return fmt.Errorf("%w: band %d has index %d", ErrInvalidTable, i, b.Index)
		}
		if want := uint8(1<<(i+1) - 1); b.LEDs != want {
			return fmt.Errorf("%w: band %d leds %#02x, want %#02x", ErrInvalidTable, i, b.LEDs, want)
		}
		if b.StepDelay <= 0 {
			return fmt.Errorf("%w: band %d step delay %d", ErrInvalidTable, i, b.StepDelay)
		}
		if i > 0 && b.StepDelay >= t[i-1].StepDelay {
			return fmt.Errorf("%w: band %d step delay %d not below %d", ErrInvalidTable, i, b.StepDelay, t[i-1].StepDelay)
		}
	}
	return nil
}

// Select returns the band containing pct.
//
// Values below 0 and NaN select band 0, values above 100 select band 7.
func (t *Table) Select(pct float64) Band {
	if math.IsNaN(pct) {
		return t[0]
	}
	for k := 0; k < Count-1; k++ {
		if pct <= Width*float64(k+1) {
			return t[k]
		}
	}
	return t[Count-1]
}

// Select returns the band of the Default table containing pct.
func Select(pct float64) Band {
	return Default.Select(pct)
}

// InRange reports whether pct is a valid knob position.
func InRange(pct float64) bool {
	return pct >= 0 && pct <= 100
}
