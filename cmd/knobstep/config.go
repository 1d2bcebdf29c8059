// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/GermanBionicSystems/knobstep/bands"
)

// duration reads "20s" style values from TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// config is the simulator configuration. Values come from the defaults, then
// the TOML file, then flags explicitly set on the command line.
type config struct {
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Knob struct {
		// Mode is "sweep" or "fixed".
		Mode    string   `toml:"mode"`
		Percent float64  `toml:"percent"`
		Period  duration `toml:"period"`
	} `toml:"knob"`
	Motor struct {
		Tick duration `toml:"tick"`
	} `toml:"motor"`
	Serial struct {
		// Port is a host serial device such as /dev/ttyUSB0.
		Port string `toml:"port"`
		// UART uses the first periph UART instead.
		UART    bool     `toml:"uart"`
		Timeout duration `toml:"timeout"`
	} `toml:"serial"`
	GPIO struct {
		// LEDs are the bar graph pin names, bit 0 first. "" leaves a bit
		// unwired.
		LEDs []string `toml:"leds"`
		// Coils are the motor pin names for lines 7, 6, 5 and 4.
		Coils []string `toml:"coils"`
		// SPI drives the bar graph through a 74HC595 on this SPI port
		// instead of LEDs.
		SPI string `toml:"spi"`
	} `toml:"gpio"`
	Sim struct {
		ConversionTime duration `toml:"conversion_time"`
		TxTime         duration `toml:"tx_time"`
	} `toml:"sim"`
	Terminal bool `toml:"terminal"`
	Metrics  struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
	Snapshot struct {
		Path string `toml:"path"`
	} `toml:"snapshot"`
	// Bands overrides the compiled-in band table.
	Bands []bands.Band `toml:"band"`
}

func defaultConfig() *config {
	c := &config{}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Knob.Mode = "sweep"
	c.Knob.Percent = 50
	c.Knob.Period = duration{20 * time.Second}
	c.Motor.Tick = duration{time.Millisecond}
	c.Sim.ConversionTime = duration{20 * time.Microsecond}
	c.Sim.TxTime = duration{time.Second / 960}
	c.Terminal = true
	return c
}

// load reads path over the defaults. A missing file is not an error unless
// required is set.
func load(path string, required bool) (*config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return c, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// table returns the band table override, or nil for the default.
func (c *config) table() (*bands.Table, error) {
	if len(c.Bands) == 0 {
		return nil, nil
	}
	t, err := bands.NewTable(c.Bands)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// applyFlags copies the flags explicitly set on the command line.
func (c *config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, fn func()) {
		if err == nil && fs.Lookup(name) != nil && fs.Changed(name) {
			fn()
		}
	}
	set("log-level", func() { c.Log.Level, err = fs.GetString("log-level") })
	set("log-format", func() { c.Log.Format, err = fs.GetString("log-format") })
	set("knob", func() { c.Knob.Mode, err = fs.GetString("knob") })
	set("percent", func() { c.Knob.Percent, err = fs.GetFloat64("percent") })
	set("period", func() { c.Knob.Period.Duration, err = fs.GetDuration("period") })
	set("tick", func() { c.Motor.Tick.Duration, err = fs.GetDuration("tick") })
	set("serial", func() { c.Serial.Port, err = fs.GetString("serial") })
	set("uart", func() { c.Serial.UART, err = fs.GetBool("uart") })
	set("serial-timeout", func() { c.Serial.Timeout.Duration, err = fs.GetDuration("serial-timeout") })
	set("led-pins", func() { c.GPIO.LEDs, err = fs.GetStringSlice("led-pins") })
	set("coil-pins", func() { c.GPIO.Coils, err = fs.GetStringSlice("coil-pins") })
	set("led-spi", func() { c.GPIO.SPI, err = fs.GetString("led-spi") })
	set("terminal", func() { c.Terminal, err = fs.GetBool("terminal") })
	set("metrics-addr", func() { c.Metrics.Addr, err = fs.GetString("metrics-addr") })
	set("snapshot", func() { c.Snapshot.Path, err = fs.GetString("snapshot") })
	return err
}
