// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package knobstep is a potentiometer driven stepper motor controller.
//
// A knob is sampled by a 10-bit ADC, the reading is mapped to one of eight
// speed bands and each band lights a bar graph, optionally sends a status
// line and turns a unipolar stepper one revolution at the band's speed.
//
// The packages are layered the way the firmware is:
//
//	pic18      simulated PIC18F4520 register bank
//	sampler    conversion handling and scaling
//	bands      band table and actuation dispatch
//	stepper    one-hot coil sequencing
//	serialout  byte and string transmission
//	controller peripheral setup and the interrupt loop
//
// Supporting packages provide knob sources (pot), output latches (latch,
// ledbar), a panel renderer (panel), Prometheus metrics (metrics) and a
// TinyGo binding (board). cmd/knobstep runs the whole thing on a host.
package knobstep
