// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pic18 simulates the register file of a PIC18 microcontroller.
//
// Only the peripherals needed by a potentiometer driven stepper controller
// are modeled: the 10-bit A/D converter with its completion interrupt, the
// EUSART transmitter, and the B and D port latches. Every logical register
// field has a named accessor (SetCHS, SetADCS, ClearADIF, ...) so drivers
// never manipulate raw bit masks.
//
// Conversions read an analog.PinADC, transmitted bytes go to an io.Writer
// and port latches are mirrored to Latch implementations such as a
// gpio.Group, which makes the same driver code run against real pins on a
// host or against fakes in tests.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/39631E.pdf
package pic18
