// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package board runs the knob controller on a microcontroller with TinyGo.
//
// The sampler, band dispatcher, serial output and stepper driver are the same
// packages the host simulator uses; only the peripherals differ. The analog
// knob is a machine.ADC, the status line a machine.UART, the motor coils four
// machine.Pin and the LED bar graph either eight pins or a 74HC595 on a
// drivers.SPI bus.
//
// The package is empty unless built with TinyGo. A Raspberry Pi Pico main
// looks like:
//
//	err := board.Run(board.Config{
//		Knob:    machine.ADC{Pin: machine.ADC1},
//		UART:    machine.DefaultUART,
//		LEDPins: [8]machine.Pin{machine.GP2, machine.GP3, machine.GP4, machine.GP5, machine.GP6, machine.GP7, machine.GP8, machine.GP9},
//		Coils:   [4]machine.Pin{machine.GP10, machine.GP11, machine.GP12, machine.GP13},
//	})
package board
