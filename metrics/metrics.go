// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports controller activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/kelindar/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GermanBionicSystems/knobstep/controller"
)

const namespace = "knobstep"

// Collector records Sampled and Revolved events.
type Collector struct {
	samples     *prometheus.CounterVec
	sampleErrs  prometheus.Counter
	percent     prometheus.Gauge
	band        prometheus.Gauge
	revolutions *prometheus.CounterVec
	revTime     prometheus.Histogram
	revErrs     prometheus.Counter
}

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		samples: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "samples_total",
			Help:      "Conversions handled, by selected band",
		}, []string{"band"}),
		sampleErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "errors_total",
			Help:      "Conversions that failed to read or actuate",
		}),
		percent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "percent",
			Help:      "Last knob position in percent",
		}),
		band: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "band",
			Help:      "Last selected speed band",
		}),
		revolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "motor",
			Name:      "revolutions_total",
			Help:      "Completed motor revolutions, by band",
		}, []string{"band"}),
		revTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "motor",
			Name:      "revolution_seconds",
			Help:      "Time spent on one revolution",
			Buckets:   prometheus.LinearBuckets(0.5, 0.5, 12),
		}),
		revErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "motor",
			Name:      "errors_total",
			Help:      "Revolutions with an output failure",
		}),
	}
}

// ObserveSample records one handled conversion.
func (c *Collector) ObserveSample(e controller.Sampled) {
	if e.Err != nil {
		c.sampleErrs.Inc()
		return
	}
	c.samples.WithLabelValues(strconv.Itoa(e.Reading.Band.Index)).Inc()
	c.percent.Set(e.Reading.Percent)
	c.band.Set(float64(e.Reading.Band.Index))
}

// ObserveRevolution records one revolution.
func (c *Collector) ObserveRevolution(e controller.Revolved) {
	if e.Err != nil {
		c.revErrs.Inc()
	}
	c.revolutions.WithLabelValues(strconv.Itoa(e.Band.Index)).Inc()
	c.revTime.Observe(e.Took.Seconds())
}

// Subscribe feeds the collector from d until the returned function is
// called.
func (c *Collector) Subscribe(d *event.Dispatcher) func() {
	s := event.Subscribe(d, c.ObserveSample)
	r := event.Subscribe(d, c.ObserveRevolution)
	return func() {
		s()
		r()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
