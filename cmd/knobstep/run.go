// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/kelindar/event"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/knobstep/controller"
	"github.com/GermanBionicSystems/knobstep/ledbar"
	"github.com/GermanBionicSystems/knobstep/metrics"
	"github.com/GermanBionicSystems/knobstep/panel"
	"github.com/GermanBionicSystems/knobstep/pic18"
	"github.com/GermanBionicSystems/knobstep/pot"
	"github.com/GermanBionicSystems/knobstep/sampler"
	"github.com/GermanBionicSystems/knobstep/stepper"
)

func newRunCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the controller on a simulated PIC18",
		Long: `Run the knob controller against a simulated PIC18 register bank.

The knob is either swept end to end or held at a fixed position. LEDs and
motor coils are shown on the terminal and can be mirrored to real GPIO pins
or a 74HC595. Status text goes to a serial port when one is configured and to
the log otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if ft, _ := cmd.Flags().GetBool("firmware-timing"); ft {
				cfg.Motor.Tick.Duration = stepper.FirmwareTick
			}
			return run(cmd.Context(), cfg, log)
		},
	}
	f := cmd.Flags()
	f.String("knob", "sweep", "knob source: sweep or fixed")
	f.Float64("percent", 50, "fixed knob position in percent")
	f.Duration("period", 20*time.Second, "sweep period")
	f.Duration("tick", time.Millisecond, "motor step delay unit")
	f.Bool("firmware-timing", false, "use the original 5ms delay unit")
	f.String("serial", "", "host serial port for status text, e.g. /dev/ttyUSB0")
	f.Bool("uart", false, "send status text on the first periph UART")
	f.Duration("serial-timeout", 0, "give up on a status byte after this long, 0 waits forever")
	f.StringSlice("led-pins", nil, "bar graph GPIO names, bit 0 first")
	f.StringSlice("coil-pins", nil, "motor GPIO names for lines 7, 6, 5 and 4")
	f.String("led-spi", "", "SPI port of a 74HC595 bar graph")
	f.Bool("terminal", true, "draw LEDs and coils on the terminal")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("snapshot", "", "rewrite this PNG after every revolution")
	return cmd
}

func knob(cfg *config) (analog.PinADC, error) {
	switch cfg.Knob.Mode {
	case "sweep":
		return pot.NewSweep("AN1", controller.Channel, cfg.Knob.Period.Duration, nil), nil
	case "fixed":
		k := pot.NewFixed("AN1", controller.Channel, 0)
		k.SetPercent(cfg.Knob.Percent)
		return k, nil
	}
	return nil, fmt.Errorf("unknown knob %q", cfg.Knob.Mode)
}

func run(ctx context.Context, cfg *config, log *slog.Logger) (err error) {
	var cl closers
	defer func() {
		if cerr := cl.Close(); err == nil {
			err = cerr
		}
	}()

	input, err := knob(cfg)
	if err != nil {
		return err
	}
	tbl, err := cfg.table()
	if err != nil {
		return err
	}
	out, err := openSerial(cfg, &cl)
	if err != nil {
		return err
	}
	if out == nil {
		out = &statusLog{log: log}
	}
	hwLEDs, err := openLEDs(cfg, &cl)
	if err != nil {
		return err
	}
	hwCoils, err := openCoils(cfg)
	if err != nil {
		return err
	}
	var termLEDs, termCoils pic18.Latch
	if cfg.Terminal {
		l, c, err := terminalBars(colorable.NewColorableStdout())
		if err != nil {
			return err
		}
		termLEDs, termCoils = l, c
		defer l.Halt()
	}

	b := pic18.New(&pic18.Opts{
		Input:          input,
		Serial:         out,
		PortB:          join(termCoils, hwCoils),
		PortD:          join(termLEDs, hwLEDs),
		ConversionTime: cfg.Sim.ConversionTime.Duration,
		TxTime:         cfg.Sim.TxTime.Duration,
	})
	events := event.NewDispatcher()
	c, err := controller.New(b, &controller.Opts{
		Logger:        log,
		Events:        events,
		Table:         tbl,
		Tick:          cfg.Motor.Tick.Duration,
		SerialTimeout: cfg.Serial.Timeout.Duration,
	})
	if err != nil {
		return err
	}
	defer c.Halt()

	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(ctx, cfg.Metrics.Addr, events, log)
		if err != nil {
			return err
		}
		defer stop()
	}
	if cfg.Snapshot.Path != "" {
		p, err := panel.New(nil)
		if err != nil {
			return err
		}
		defer event.Subscribe(events, snapshotter(p, cfg.Snapshot.Path, log))()
	}

	log.Info("running", "knob", cfg.Knob.Mode, "tick", cfg.Motor.Tick.Duration, "bank", c.String())
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// terminalBars draws the LEDs and the coils side by side on one line.
func terminalBars(w io.Writer) (leds, coils *ledbar.Dev, err error) {
	opts := ledbar.DefaultOpts
	opts.W = w
	if leds, err = ledbar.New(&opts); err != nil {
		return nil, nil, err
	}
	opts.Name = "coils"
	opts.Lines = 4
	opts.Offset = 4
	opts.Column = leds.Width() + 2
	if coils, err = ledbar.New(&opts); err != nil {
		return nil, nil, err
	}
	return leds, coils, nil
}

func serveMetrics(ctx context.Context, addr string, events *event.Dispatcher, log *slog.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	unsub := metrics.New(reg).Subscribe(events)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		unsub()
		return nil, err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		unsub()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}

// snapshotter redraws the panel after every actuated sample. A revolution
// always ends on the phase it started from.
func snapshotter(p *panel.Panel, path string, log *slog.Logger) func(controller.Sampled) {
	var mu sync.Mutex
	return func(e controller.Sampled) {
		if errors.Is(e.Err, sampler.ErrRead) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		b := e.Reading.Band
		s := panel.State{
			LEDs:    b.LEDs,
			Coils:   gpio.GPIOValue(0x80) >> ((stepper.PhaseUpdates - 1) % 4),
			Percent: e.Reading.Percent,
			Band:    b.Index,
			Status:  b.Status,
		}
		if err := writePNG(p, path, s); err != nil {
			log.Warn("snapshot", "path", path, "error", err)
		}
	}
}

func writePNG(p *panel.Panel, path string, s panel.State) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return p.WritePNG(f, s)
}
