// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pic18

import "fmt"

// Register is the data memory address of a special function register.
type Register uint16

// Special function registers used by the controller. Addresses are the
// PIC18F4520 ones.
const (
	PORTA  Register = 0xF80
	LATB   Register = 0xF8A
	LATD   Register = 0xF8C
	TRISA  Register = 0xF92
	TRISB  Register = 0xF93
	TRISC  Register = 0xF94
	TRISD  Register = 0xF95
	PIE1   Register = 0xF9D
	PIR1   Register = 0xF9E
	RCSTA  Register = 0xFAB
	TXSTA  Register = 0xFAC
	TXREG  Register = 0xFAD
	SPBRG  Register = 0xFAF
	ADCON2 Register = 0xFC0
	ADCON1 Register = 0xFC1
	ADCON0 Register = 0xFC2
	ADRESL Register = 0xFC3
	ADRESH Register = 0xFC4
	INTCON Register = 0xFF2
)

const (
	sfrBase = 0xF80
	sfrSize = 0x80
)

var registerNames = map[Register]string{
	PORTA:  "PORTA",
	LATB:   "LATB",
	LATD:   "LATD",
	TRISA:  "TRISA",
	TRISB:  "TRISB",
	TRISC:  "TRISC",
	TRISD:  "TRISD",
	PIE1:   "PIE1",
	PIR1:   "PIR1",
	RCSTA:  "RCSTA",
	TXSTA:  "TXSTA",
	TXREG:  "TXREG",
	SPBRG:  "SPBRG",
	ADCON2: "ADCON2",
	ADCON1: "ADCON1",
	ADCON0: "ADCON0",
	ADRESL: "ADRESL",
	ADRESH: "ADRESH",
	INTCON: "INTCON",
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return fmt.Sprintf("SFR(0x%03X)", uint16(r))
}

func (r Register) valid() bool {
	return r >= sfrBase && r < sfrBase+sfrSize
}

// Bit positions.
const (
	bitGIE  = 7 // INTCON
	bitPEIE = 6 // INTCON
	bitADIF = 6 // PIR1
	bitTXIF = 4 // PIR1
	bitADIE = 6 // PIE1
	bitGO   = 1 // ADCON0
	bitADON = 0 // ADCON0
	bitADFM = 7 // ADCON2
	bitTXEN = 5 // TXSTA
	bitSPEN = 7 // RCSTA
)

// field is a multi-bit value inside a register.
type field struct {
	reg   Register
	shift uint8
	width uint8
}

func (f field) mask() byte {
	return byte((1<<f.width)-1) << f.shift
}

func (f field) get(v byte) byte {
	return (v & f.mask()) >> f.shift
}

func (f field) set(v, x byte) byte {
	return (v &^ f.mask()) | ((x << f.shift) & f.mask())
}

var (
	fieldCHS  = field{reg: ADCON0, shift: 2, width: 4}
	fieldVCFG = field{reg: ADCON1, shift: 4, width: 2}
	fieldACQT = field{reg: ADCON2, shift: 3, width: 3}
	fieldADCS = field{reg: ADCON2, shift: 0, width: 3}
)
