// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/knobstep/bands"
	"github.com/GermanBionicSystems/knobstep/panel"
)

func newSnapshotCmd(g *globals) *cobra.Command {
	var pct float64
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the panel for a knob position to PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.setup(cmd)
			if err != nil {
				return err
			}
			t, err := cfg.table()
			if err != nil {
				return err
			}
			if t == nil {
				t = &bands.Default
			}
			s, err := snapshotState(t, pct)
			if err != nil {
				return err
			}
			p, err := panel.New(nil)
			if err != nil {
				return err
			}
			if err := writePNG(p, out, s); err != nil {
				return err
			}
			log.Info("wrote snapshot", "path", out, "band", s.Band)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&pct, "percent", "p", 50, "knob position in percent")
	cmd.Flags().StringVarP(&out, "out", "o", "knobstep.png", "output PNG file")
	return cmd
}

// snapshotState is the panel after the controller handled pct: LEDs and
// status from the band, coils back on the first phase.
func snapshotState(t *bands.Table, pct float64) (panel.State, error) {
	if !bands.InRange(pct) {
		return panel.State{}, fmt.Errorf("percent %g out of [0, 100]", pct)
	}
	b := t.Select(pct)
	return panel.State{
		LEDs:    b.LEDs,
		Coils:   gpio.GPIOValue(0x80),
		Percent: pct,
		Band:    b.Index,
		Status:  b.Status,
	}, nil
}
