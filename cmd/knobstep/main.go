// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// knobstep simulates the potentiometer driven stepper controller.
//
// It runs the PIC18 firmware logic against a simulated register bank, prints
// the band table and renders panel snapshots.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	config    string
	logLevel  string
	logFormat string
}

// setup loads the configuration, applies explicitly set flags and builds the
// logger.
func (g *globals) setup(cmd *cobra.Command) (*config, *slog.Logger, error) {
	cfg, err := load(g.config, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.applyFlags(cmd.Flags()); err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(log)
	return cfg, log, nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "knobstep",
		Short:         "Knob controlled stepper motor simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "knobstep.toml", "configuration file")
	pf.StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "text", "text or json")
	root.AddCommand(newRunCmd(g), newTableCmd(g), newSnapshotCmd(g))
	return root
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "knobstep: %s.\n", err)
		os.Exit(1)
	}
}
