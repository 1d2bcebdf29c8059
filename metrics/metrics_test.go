// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kelindar/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GermanBionicSystems/knobstep/bands"
	"github.com/GermanBionicSystems/knobstep/controller"
	"github.com/GermanBionicSystems/knobstep/sampler"
)

func TestObserve(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObserveSample(controller.Sampled{Reading: sampler.Reading{Percent: 100, Band: bands.Default[7]}})
	c.ObserveSample(controller.Sampled{Reading: sampler.Reading{Percent: 99.6, Band: bands.Default[7]}})
	c.ObserveSample(controller.Sampled{Err: sampler.ErrRead})
	c.ObserveRevolution(controller.Revolved{Band: bands.Default[7], Took: 730 * time.Millisecond})
	c.ObserveRevolution(controller.Revolved{Band: bands.Default[0], Took: 2 * time.Second, Err: errors.New("latch")})

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"samples band 7", c.samples.WithLabelValues("7"), 2},
		{"sample errors", c.sampleErrs, 1},
		{"percent", c.percent, 99.6},
		{"band", c.band, 7},
		{"revolutions band 0", c.revolutions.WithLabelValues("0"), 1},
		{"revolution errors", c.revErrs, 1},
	}
	for _, check := range checks {
		if got := testutil.ToFloat64(check.c); got != check.want {
			t.Errorf("%s = %v, want %v", check.name, got, check.want)
		}
	}
}

func TestSubscribe(t *testing.T) {
	c := New(prometheus.NewRegistry())
	d := event.NewDispatcher()
	unsub := c.Subscribe(d)
	defer unsub()
	event.Publish(d, controller.Revolved{Band: bands.Default[3], Took: time.Second})

	// Delivery is asynchronous.
	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(c.revolutions.WithLabelValues("3")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("event not observed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveSample(controller.Sampled{Reading: sampler.Reading{Percent: 12.5, Band: bands.Default[0]}})

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`knobstep_sampler_samples_total{band="0"} 1`,
		`knobstep_sampler_percent 12.5`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}
