// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package serialout_test

import (
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/knobstep/serialout"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	p, err := uartreg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	c, err := p.Connect(9600*physic.Hertz, uart.One, uart.NoParity, uart.NoFlow, 8)
	if err != nil {
		log.Fatal(err)
	}
	d, err := serialout.NewConn(c, &serialout.Opts{Timeout: 100 * time.Millisecond})
	if err != nil {
		log.Fatal(err)
	}
	if err := d.SendString("Velocidade Minima \r"); err != nil {
		log.Fatal(err)
	}
}
