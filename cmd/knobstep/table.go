// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GermanBionicSystems/knobstep/bands"
)

func newTableCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the speed band table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.setup(cmd)
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
			return printTable(cmd.OutOrStdout(), t)
		},
	}
}

func printTable(w io.Writer, t *bands.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BAND\tRANGE\tLEDS\tDELAY\tSTATUS")
	for _, b := range t {
		fmt.Fprintf(tw, "%d\t%s\t%08b\t%d\t%s\n", b.Index, b.Range(), b.LEDs, b.StepDelay, strconv.Quote(b.Status))
	}
	return tw.Flush()
}
