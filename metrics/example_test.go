// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package metrics_test

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GermanBionicSystems/knobstep/controller"
	"github.com/GermanBionicSystems/knobstep/metrics"
	"github.com/GermanBionicSystems/knobstep/pic18"
	"github.com/GermanBionicSystems/knobstep/pot"
)

func Example() {
	b := pic18.New(&pic18.Opts{Input: pot.NewFixed("AN1", controller.Channel, 600)})
	c, err := controller.New(b, nil)
	if err != nil {
		log.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	defer metrics.New(reg).Subscribe(c.Events())()

	http.Handle("/metrics", metrics.Handler(reg))
	go func() {
		log.Fatal(http.ListenAndServe(":9100", nil))
	}()
	if err := c.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
