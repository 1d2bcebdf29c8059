// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"fmt"

	"github.com/GermanBionicSystems/knobstep/pic18"
)

// ADC configuration.
const (
	adcsFosc4  = 0b100 // TAD = 4/Fosc
	acqt4TAD   = 0b010
	vcfgSupply = 0b00 // VDD/VSS references
)

// Setup programs the bank: ports D and B as outputs for the LEDs and motor,
// the EUSART at Baud, AN1 on the converter and the A/D interrupt.
func Setup(b *pic18.Bank) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"TRISD", func() error { return b.Write(pic18.TRISD, 0x00) }},
		{"TRISB", func() error { return b.Write(pic18.TRISB, 0x02) }},
		{"TRISC6", func() error { return b.SetBit(pic18.TRISC, 6, true) }},
		{"TRISC7", func() error { return b.SetBit(pic18.TRISC, 7, true) }},
		{"RCSTA", func() error { return b.Write(pic18.RCSTA, 0x90) }},
		{"TXSTA", func() error { return b.Write(pic18.TXSTA, 0x24) }},
		{"SPBRG", func() error { return b.Write(pic18.SPBRG, pic18.BaudDivisor(Fosc, Baud, true)) }},
		{"TRISA", func() error { return b.Write(pic18.TRISA, 0x02) }},
		{"ADCS", func() error { return b.SetADCS(adcsFosc4) }},
		{"ACQT", func() error { return b.SetACQT(acqt4TAD) }},
		{"ADFM", func() error { return b.SetADFM(true) }},
		{"VCFG", func() error { return b.SetVCFG(vcfgSupply) }},
		{"CHS", func() error { return b.SetCHS(Channel) }},
		{"ADON", func() error { return b.SetADON(true) }},
		{"GIE", func() error { return b.SetGIE(true) }},
		{"PEIE", func() error { return b.SetPEIE(true) }},
		{"ADIE", func() error { return b.SetADIE(true) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("controller: setup %s: %w", s.name, err)
		}
	}
	return nil
}
