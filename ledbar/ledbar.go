// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ledbar renders a port of LEDs on the terminal using ANSI color
// codes.
//
// Useful to watch the bar graph and the motor coils while running the
// controller without a board.
package ledbar

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/gpio"
)

// ErrInvalidSetting is returned for a width outside 1..64 or a negative
// column.
var ErrInvalidSetting = errors.New("ledbar: invalid setting")

// Opts represents the options available for this display.
type Opts struct {
	// Name is printed after the LEDs.
	Name string
	// Lines is the number of LEDs, starting at Offset.
	Lines int
	// Offset is the port bit of the leftmost LED.
	Offset int
	// Column is the terminal column the bar starts at, so several bars can
	// share one line.
	Column int
	// On and Off are the LED colors.
	On, Off color.NRGBA
	// W defaults to a colorable stdout.
	W       io.Writer
	Palette *ansi256.Palette
}

// DefaultOpts is a green 8-LED bar graph.
var DefaultOpts = Opts{
	Name:  "LEDs",
	Lines: 8,
	On:    color.NRGBA{R: 0, G: 255, B: 0, A: 255},
	Off:   color.NRGBA{R: 40, G: 40, B: 40, A: 255},
}

// Dev is a row of LEDs emulated on the console.
type Dev struct {
	name    string
	lines   int
	offset  int
	column  int
	on, off color.NRGBA
	palette ansi256.Palette

	mu    sync.Mutex
	w     io.Writer
	value gpio.GPIOValue
	buf   bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Lines <= 0 || opts.Offset < 0 || opts.Lines+opts.Offset > 64 {
		return nil, fmt.Errorf("%w: %d lines at %d", ErrInvalidSetting, opts.Lines, opts.Offset)
	}
	if opts.Column < 0 {
		return nil, fmt.Errorf("%w: column %d", ErrInvalidSetting, opts.Column)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		name:    opts.Name,
		lines:   opts.Lines,
		offset:  opts.Offset,
		column:  opts.Column,
		on:      opts.On,
		off:     opts.Off,
		palette: *p,
		w:       opts.W,
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	return d, nil
}

func (d *Dev) String() string {
	return "ledbar(" + d.name + ")"
}

// Width is the number of terminal columns one redraw covers.
func (d *Dev) Width() int {
	return d.lines + 1 + len(d.name)
}

// Halt implements conn.Resource.
//
// It moves to the next line and resets the colors so the terminal is not
// corrupted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Out updates the bits selected by mask, zero meaning all, and redraws.
func (d *Dev) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = ^gpio.GPIOValue(0)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = (d.value &^ mask) | (value & mask)
	return d.refresh()
}

// Value returns the current port state.
func (d *Dev) Value() gpio.GPIOValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r")
	if d.column > 0 {
		_, _ = fmt.Fprintf(&d.buf, "\033[%dC", d.column)
	}
	_, _ = d.buf.WriteString("\033[0m")
	for i := 0; i < d.lines; i++ {
		c := d.off
		if d.value&(1<<(d.offset+i)) != 0 {
			c = d.on
		}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, _ = d.buf.WriteString(d.name)
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ fmt.Stringer = &Dev{}
