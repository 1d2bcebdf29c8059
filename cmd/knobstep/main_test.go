// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/knobstep/bands"
	"github.com/GermanBionicSystems/knobstep/panel"
)

func TestLoadDefaults(t *testing.T) {
	c, err := load(filepath.Join(t.TempDir(), "missing.toml"), false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(defaultConfig(), c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if _, err := load(filepath.Join(t.TempDir(), "missing.toml"), true); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}
}

const testConfig = `
[log]
level = "debug"

[knob]
mode = "fixed"
percent = 75.5

[motor]
tick = "5ms"

[serial]
timeout = "2s"

[gpio]
coils = ["GPIO4", "GPIO5", "GPIO6", "GPIO7"]

[[band]]
leds = 1
step_delay = 80
status = "slow\r"
[[band]]
leds = 3
step_delay = 70
[[band]]
leds = 7
step_delay = 60
[[band]]
leds = 15
step_delay = 50
[[band]]
leds = 31
step_delay = 40
[[band]]
leds = 63
step_delay = 30
[[band]]
leds = 127
step_delay = 20
[[band]]
leds = 255
step_delay = 10
status = "fast\r"
`

func writeConfig(t *testing.T, s string) string {
	p := filepath.Join(t.TempDir(), "knobstep.toml")
	if err := os.WriteFile(p, []byte(s), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFile(t *testing.T) {
	c, err := load(writeConfig(t, testConfig), true)
	if err != nil {
		t.Fatal(err)
	}
	if c.Log.Level != "debug" || c.Log.Format != "text" {
		t.Fatalf("log = %+v", c.Log)
	}
	if c.Knob.Mode != "fixed" || c.Knob.Percent != 75.5 || c.Knob.Period.Duration != 20*time.Second {
		t.Fatalf("knob = %+v", c.Knob)
	}
	if c.Motor.Tick.Duration != 5*time.Millisecond {
		t.Fatalf("tick = %s", c.Motor.Tick)
	}
	if c.Serial.Timeout.Duration != 2*time.Second {
		t.Fatalf("timeout = %s", c.Serial.Timeout)
	}
	tbl, err := c.table()
	if err != nil {
		t.Fatal(err)
	}
	if tbl == nil {
		t.Fatal("want a table override")
	}
	got := tbl.Select(75.5)
	want := bands.Band{Index: 6, LEDs: 127, StepDelay: 20}
	if got != want {
		t.Fatalf("Select(75.5) = %+v, want %+v", got, want)
	}
	if tbl[7].Status != "fast\r" {
		t.Fatalf("status = %q", tbl[7].Status)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := load(writeConfig(t, "[motor]\ntick = \"soon\"\n"), true); err == nil {
		t.Fatal("want a parse error")
	}
	c, err := load(writeConfig(t, "[[band]]\nleds = 1\nstep_delay = 10\n"), true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.table(); !errors.Is(err, bands.ErrInvalidTable) {
		t.Fatalf("want ErrInvalidTable, got %v", err)
	}
}

func TestApplyFlags(t *testing.T) {
	c, err := load(writeConfig(t, testConfig), true)
	if err != nil {
		t.Fatal(err)
	}
	cmd := newRunCmd(&globals{})
	fs := cmd.Flags()
	if err := fs.Parse([]string{"--tick=2ms", "--knob=sweep", "--led-pins=GPIO1,,GPIO3", "--terminal=false"}); err != nil {
		t.Fatal(err)
	}
	if err := c.applyFlags(fs); err != nil {
		t.Fatal(err)
	}
	if c.Motor.Tick.Duration != 2*time.Millisecond {
		t.Fatalf("tick = %s", c.Motor.Tick)
	}
	if c.Knob.Mode != "sweep" {
		t.Fatalf("knob = %q", c.Knob.Mode)
	}
	// Unset flags keep the file value even when their default differs.
	if c.Knob.Percent != 75.5 {
		t.Fatalf("percent = %g", c.Knob.Percent)
	}
	if diff := cmp.Diff([]string{"GPIO1", "", "GPIO3"}, c.GPIO.LEDs); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if c.Terminal {
		t.Fatal("terminal should be off")
	}
}

func TestKnob(t *testing.T) {
	c := defaultConfig()
	c.Knob.Mode = "fixed"
	c.Knob.Percent = 100
	k, err := knob(c)
	if err != nil {
		t.Fatal(err)
	}
	s, err := k.Read()
	if err != nil {
		t.Fatal(err)
	}
	if s.Raw != 1023 {
		t.Fatalf("raw = %d", s.Raw)
	}
	c.Knob.Mode = "wobble"
	if _, err := knob(c); err == nil {
		t.Fatal("want an error")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown", "band", 3)
	if s := buf.String(); strings.Contains(s, "hidden") || !strings.Contains(s, `"band":3`) {
		t.Fatalf("unexpected log %q", s)
	}
	if _, err := newLogger(&buf, "loud", "text"); err == nil {
		t.Fatal("want a level error")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatal("want a format error")
	}
}

func TestStatusLog(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "info", "text")
	if err != nil {
		t.Fatal(err)
	}
	s := &statusLog{log: l}
	for _, c := range []byte(bands.StatusMin) {
		if _, err := s.Write([]byte{c}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Write([]byte("\r\r")); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if strings.Count(got, "msg=status") != 1 || !strings.Contains(got, `text="Velocidade Minima"`) {
		t.Fatalf("unexpected log %q", got)
	}
}

type recordLatch struct {
	values []gpio.GPIOValue
	err    error
}

func (r *recordLatch) Out(value, mask gpio.GPIOValue) error {
	r.values = append(r.values, value&mask)
	return r.err
}

func TestJoin(t *testing.T) {
	if join(nil, nil) != nil {
		t.Fatal("want nil")
	}
	a := &recordLatch{}
	if join(nil, a) != a {
		t.Fatal("want the single latch")
	}
	b := &recordLatch{err: errors.New("stuck")}
	j := join(a, nil, b)
	if err := j.Out(0x37, 0x0F); err == nil {
		t.Fatal("want the error of b")
	}
	want := []gpio.GPIOValue{0x07}
	if diff := cmp.Diff(want, a.values); diff != "" {
		t.Fatalf("a (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, b.values); diff != "" {
		t.Fatalf("b (-want +got):\n%s", diff)
	}
}

func TestTerminalBars(t *testing.T) {
	var buf bytes.Buffer
	leds, coils, err := terminalBars(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := leds.Out(0xFF, 0xFF); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\r\033[0m") {
		t.Fatalf("LED bar does not start at column 0: %q", buf.String())
	}
	buf.Reset()
	if err := coils.Out(0x80, 0xF0); err != nil {
		t.Fatal(err)
	}
	if want := "\r\033[15C"; !strings.HasPrefix(buf.String(), want) {
		t.Fatalf("coil bar %q does not start with %q", buf.String(), want)
	}
	if !strings.HasSuffix(buf.String(), " coils") {
		t.Fatalf("coil bar %q", buf.String())
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	if err := printTable(&buf, &bands.Default); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != bands.Count+1 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"BAND", "RANGE", "STATUS"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("header %q lacks %s", lines[0], want)
		}
	}
	first := strings.Fields(lines[1])
	if diff := cmp.Diff([]string{"0", "[0,", "12.5]", "00000001", "30", `"Velocidade`, `Minima`, `\r"`}, first); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	last := strings.Fields(lines[8])
	if last[0] != "7" || last[1] != "(87.5," || last[3] != "11111111" || last[4] != "10" {
		t.Fatalf("unexpected row %q", lines[8])
	}
}

func TestSnapshotState(t *testing.T) {
	s, err := snapshotState(&bands.Default, 50)
	if err != nil {
		t.Fatal(err)
	}
	want := panel.State{LEDs: 0x0F, Coils: 0x80, Percent: 50, Band: 3}
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
	if _, err := snapshotState(&bands.Default, 101); err == nil {
		t.Fatal("want an error")
	}
}

func TestWritePNG(t *testing.T) {
	p, err := panel.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := snapshotState(&bands.Default, 100)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.png")
	if err := writePNG(p, path, s); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != p.Bounds() {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), p.Bounds())
	}
}

func TestTableCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"table", "--config", writeConfig(t, testConfig)})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"fast\r"`) {
		t.Fatalf("override not printed:\n%s", out.String())
	}
}
