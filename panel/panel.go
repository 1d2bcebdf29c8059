// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel draws a front panel picture of the controller: the LED bar
// graph, the four motor coils and a status line.
//
// The picture can be saved as PNG or pushed to any periph display.Drawer,
// such as a small OLED or e-paper module.
package panel

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// ErrInvalidSetting is returned for a panel too small to draw on.
var ErrInvalidSetting = errors.New("panel: invalid setting")

// State is what the panel shows.
type State struct {
	// LEDs is the bar graph latch, bit 0 leftmost.
	LEDs uint8
	// Coils is the motor port; lines 7..4 are drawn left to right.
	Coils gpio.GPIOValue
	// Percent is the knob position.
	Percent float64
	// Band is the selected band index.
	Band int
	// Status is the last status text sent, if any.
	Status string
}

// Opts holds the configuration options.
type Opts struct {
	Width, Height int
	// FontSize is in points.
	FontSize float64
}

// DefaultOpts fits a 320x120 picture.
var DefaultOpts = Opts{Width: 320, Height: 120, FontSize: 14}

// Colors, as RGB in [0, 1].
var (
	background = [3]float64{0.08, 0.08, 0.08}
	ledOn      = [3]float64{0, 1, 0}
	ledOff     = [3]float64{0.2, 0.2, 0.2}
	coilOn     = [3]float64{1, 0.6, 0}
	coilOff    = [3]float64{0.25, 0.25, 0.25}
	text       = [3]float64{1, 1, 1}
)

// Panel renders States.
type Panel struct {
	w, h int
	face font.Face
}

// New returns a Panel using the embedded Go Regular font.
func New(opts *Opts) (*Panel, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Width < 80 || opts.Height < 40 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSetting, opts.Width, opts.Height)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("panel: font: %w", err)
	}
	size := opts.FontSize
	if size <= 0 {
		size = DefaultOpts.FontSize
	}
	return &Panel{w: opts.Width, h: opts.Height, face: truetype.NewFace(f, &truetype.Options{Size: size})}, nil
}

// Bounds returns the picture size.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

// LEDCenter returns the center of bar graph LED i.
func (p *Panel) LEDCenter(i int) image.Point {
	pitch := p.w / 8
	return image.Pt(pitch/2+pitch*i, p.h/4)
}

// CoilCenter returns the center of the coil on port line 7-i.
func (p *Panel) CoilCenter(i int) image.Point {
	pitch := p.w / 8
	return image.Pt(pitch/2+pitch*(2+i), p.h*7/12)
}

// Render draws s.
func (p *Panel) Render(s State) image.Image {
	return p.context(s).Image()
}

// WritePNG encodes the picture of s to w.
func (p *Panel) WritePNG(w io.Writer, s State) error {
	return p.context(s).EncodePNG(w)
}

// Draw shows s on dst, cropped to its bounds.
func (p *Panel) Draw(dst display.Drawer, s State) error {
	return dst.Draw(dst.Bounds(), p.Render(s), image.Point{})
}

func (p *Panel) context(s State) *gg.Context {
	dc := gg.NewContext(p.w, p.h)
	setRGB(dc, background)
	dc.Clear()

	r := float64(p.w/8) * 0.3
	for i := 0; i < 8; i++ {
		c := p.LEDCenter(i)
		dc.DrawCircle(float64(c.X), float64(c.Y), r)
		if s.LEDs&(1<<i) != 0 {
			setRGB(dc, ledOn)
		} else {
			setRGB(dc, ledOff)
		}
		dc.Fill()
	}
	for i := 0; i < 4; i++ {
		c := p.CoilCenter(i)
		dc.DrawRectangle(float64(c.X)-r, float64(c.Y)-r, 2*r, 2*r)
		if s.Coils&(0x80>>i) != 0 {
			setRGB(dc, coilOn)
		} else {
			setRGB(dc, coilOff)
		}
		dc.Fill()
	}

	setRGB(dc, text)
	dc.SetFontFace(p.face)
	line := fmt.Sprintf("%.1f%%  band %d", s.Percent, s.Band)
	if s.Status != "" {
		line += "  " + strings.TrimRight(s.Status, "\r ")
	}
	dc.DrawStringAnchored(line, float64(p.w)/2, float64(p.h)*11/12, 0.5, 0)
	return dc
}

func setRGB(dc *gg.Context, c [3]float64) {
	dc.SetRGB(c[0], c[1], c[2])
}
