// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pic18

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const devName = "PIC18F4520"

// ResolutionBits is the native resolution of the A/D converter.
const ResolutionBits = 10

var (
	// ErrInvalidRegister is returned when accessing an address outside of the
	// special function register area.
	ErrInvalidRegister = errors.New("pic18: invalid register")

	// ErrNoInput is returned by ReadResult when no analog input is wired to
	// the converter.
	ErrNoInput = errors.New("pic18: no analog input")
)

// Latch receives the bits written to an output port latch.
//
// gpio.Group implements it, as do latch.Pins and ledbar.Dev. Only the bits
// in mask are meaningful.
type Latch interface {
	Out(value, mask gpio.GPIOValue) error
}

// Opts is the wiring of the simulated microcontroller.
type Opts struct {
	// Input is sampled when a conversion runs.
	Input analog.PinADC
	// Serial receives every byte written to TXREG while the transmitter is
	// enabled.
	Serial io.Writer
	// PortB and PortD mirror the LATB and LATD output latches. Bits
	// configured as inputs in TRISB/TRISD are never forwarded.
	PortB Latch
	PortD Latch
	// Clock drives conversion and transmit timing. Defaults to the real
	// clock.
	Clock clockwork.Clock
	// ConversionTime is how long a conversion takes. When zero, the
	// conversion completes synchronously inside StartConversion.
	ConversionTime time.Duration
	// TxTime is how long one byte takes to leave the shift register. When
	// zero, TXIF is set synchronously inside WriteTXREG.
	TxTime time.Duration
}

// Bank is a simulated register file of a PIC18 with the peripherals used by
// the controller: A/D converter, EUSART transmitter, ports B and D and the
// interrupt flags.
//
// Bank is safe for concurrent use.
type Bank struct {
	opts  Opts
	clock clockwork.Clock

	mu      sync.Mutex
	regs    [sfrSize]byte
	convErr error
	txErr   error
	irq     chan struct{}
}

// New returns a Bank in its power-on reset state. A nil opts leaves every
// peripheral unwired.
func New(opts *Opts) *Bank {
	if opts == nil {
		opts = &Opts{}
	}
	b := &Bank{opts: *opts, irq: make(chan struct{}, 1)}
	b.clock = opts.Clock
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	// Ports are inputs after reset and the transmit buffer is empty.
	b.regs[TRISA-sfrBase] = 0xFF
	b.regs[TRISB-sfrBase] = 0xFF
	b.regs[TRISC-sfrBase] = 0xFF
	b.regs[TRISD-sfrBase] = 0xFF
	b.regs[PIR1-sfrBase] = 1 << bitTXIF
	b.regs[TXSTA-sfrBase] = 0x02
	return b
}

func (b *Bank) String() string {
	return devName
}

// Halt implements conn.Resource.
//
// It turns the converter off and clears any pending notification.
func (b *Bank) Halt() error {
	b.mu.Lock()
	b.regs[ADCON0-sfrBase] &^= 1<<bitADON | 1<<bitGO
	b.mu.Unlock()
	select {
	case <-b.irq:
	default:
	}
	return nil
}

// IRQ returns the channel on which a notification is delivered each time a
// conversion completes with GIE, PEIE and ADIE all set.
//
// At most one notification is pending at a time.
func (b *Bank) IRQ() <-chan struct{} {
	return b.irq
}

// Read returns the current value of a register.
func (b *Bank) Read(r Register) (byte, error) {
	if !r.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRegister, r)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[r-sfrBase], nil
}

// Write stores v into a register and runs the peripheral side effects of the
// write: latches are mirrored, TXREG transmits and setting GO starts a
// conversion.
func (b *Bank) Write(r Register, v byte) error {
	if !r.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRegister, r)
	}
	b.mu.Lock()
	old := b.regs[r-sfrBase]
	b.regs[r-sfrBase] = v
	b.mu.Unlock()
	return b.sideEffect(r, old, v, 0xFF)
}

// SetBit sets or clears one bit of a register.
func (b *Bank) SetBit(r Register, bit uint8, on bool) error {
	return b.update(r, byte(1)<<bit, boolByte(on)<<bit)
}

// Bit reports whether one bit of a register is set.
func (b *Bank) Bit(r Register, bit uint8) bool {
	v, err := b.Read(r)
	return err == nil && v&(1<<bit) != 0
}

// update is a read-modify-write limited to the bits in mask.
func (b *Bank) update(r Register, mask, value byte) error {
	if !r.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRegister, r)
	}
	b.mu.Lock()
	old := b.regs[r-sfrBase]
	v := (old &^ mask) | (value & mask)
	b.regs[r-sfrBase] = v
	b.mu.Unlock()
	return b.sideEffect(r, old, v, mask)
}

func (b *Bank) setField(f field, x byte) error {
	return b.update(f.reg, f.mask(), f.set(0, x))
}

func (b *Bank) getField(f field) byte {
	v, _ := b.Read(f.reg)
	return f.get(v)
}

func (b *Bank) sideEffect(r Register, old, v, mask byte) error {
	switch r {
	case LATB:
		return b.mirror(b.opts.PortB, TRISB, v, mask)
	case LATD:
		return b.mirror(b.opts.PortD, TRISD, v, mask)
	case TXREG:
		return b.transmit(v)
	case ADCON0:
		if v&(1<<bitGO) != 0 && mask&(1<<bitGO) != 0 {
			if v&(1<<bitADON) == 0 {
				// The converter ignores GO while it is powered down.
				return b.SetBit(ADCON0, bitGO, false)
			}
			if old&(1<<bitGO) == 0 {
				b.startConversion()
			}
		}
	}
	return nil
}

func (b *Bank) mirror(l Latch, tris Register, v, mask byte) error {
	if l == nil {
		return nil
	}
	dir, _ := b.Read(tris)
	m := mask &^ dir
	if m == 0 {
		return nil
	}
	return l.Out(gpio.GPIOValue(v), gpio.GPIOValue(m))
}

// Port returns the output latch register r as a Latch, so that drivers can
// write a subset of its bits without disturbing the others.
func (b *Bank) Port(r Register) Latch {
	return &port{b: b, r: r}
}

type port struct {
	b *Bank
	r Register
}

func (p *port) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = 0xFF
	}
	return p.b.update(p.r, byte(mask), byte(value))
}

func (p *port) String() string {
	return devName + "." + p.r.String()
}

// A/D converter.

// SetCHS selects the analog channel.
func (b *Bank) SetCHS(ch byte) error { return b.setField(fieldCHS, ch) }

// CHS returns the selected analog channel.
func (b *Bank) CHS() byte { return b.getField(fieldCHS) }

// SetVCFG selects the voltage references. 0b00 is Vss and Vdd.
func (b *Bank) SetVCFG(v byte) error { return b.setField(fieldVCFG, v) }

// VCFG returns the voltage reference selection.
func (b *Bank) VCFG() byte { return b.getField(fieldVCFG) }

// SetACQT sets the acquisition time selection.
func (b *Bank) SetACQT(v byte) error { return b.setField(fieldACQT, v) }

// ACQT returns the acquisition time selection.
func (b *Bank) ACQT() byte { return b.getField(fieldACQT) }

// SetADCS sets the conversion clock divider selection.
func (b *Bank) SetADCS(v byte) error { return b.setField(fieldADCS, v) }

// ADCS returns the conversion clock divider selection.
func (b *Bank) ADCS() byte { return b.getField(fieldADCS) }

// SetADFM selects right (true) or left (false) justification of the result.
func (b *Bank) SetADFM(right bool) error { return b.SetBit(ADCON2, bitADFM, right) }

// ADFM reports whether the result is right justified.
func (b *Bank) ADFM() bool { return b.Bit(ADCON2, bitADFM) }

// SetADON powers the converter on or off.
func (b *Bank) SetADON(on bool) error { return b.SetBit(ADCON0, bitADON, on) }

// ADON reports whether the converter is powered.
func (b *Bank) ADON() bool { return b.Bit(ADCON0, bitADON) }

// GO reports whether a conversion is in progress.
func (b *Bank) GO() bool { return b.Bit(ADCON0, bitGO) }

// StartConversion sets GO/DONE.
func (b *Bank) StartConversion() error { return b.SetBit(ADCON0, bitGO, true) }

// ADIF reports whether a conversion completed.
func (b *Bank) ADIF() bool { return b.Bit(PIR1, bitADIF) }

// ClearADIF acknowledges a completed conversion.
func (b *Bank) ClearADIF() error { return b.SetBit(PIR1, bitADIF, false) }

// SetADIE enables the conversion-complete interrupt source.
func (b *Bank) SetADIE(on bool) error { return b.SetBit(PIE1, bitADIE, on) }

// SetGIE enables interrupts globally.
func (b *Bank) SetGIE(on bool) error { return b.SetBit(INTCON, bitGIE, on) }

// SetPEIE enables peripheral interrupts.
func (b *Bank) SetPEIE(on bool) error { return b.SetBit(INTCON, bitPEIE, on) }

// ReadResult returns the last conversion result as a 10-bit value,
// whichever justification ADFM selects.
func (b *Bank) ReadResult() (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.convErr != nil {
		return 0, b.convErr
	}
	h := uint16(b.regs[ADRESH-sfrBase])
	l := uint16(b.regs[ADRESL-sfrBase])
	if b.regs[ADCON2-sfrBase]&(1<<bitADFM) != 0 {
		return (h<<8 | l) & 0x3FF, nil
	}
	return h<<2 | l>>6, nil
}

func (b *Bank) startConversion() {
	if b.opts.ConversionTime == 0 {
		b.convert()
		return
	}
	go func() {
		b.clock.Sleep(b.opts.ConversionTime)
		b.convert()
	}()
}

func (b *Bank) convert() {
	var raw int32
	var err error
	if b.opts.Input == nil {
		err = ErrNoInput
	} else {
		var s analog.Sample
		if s, err = b.opts.Input.Read(); err != nil {
			err = fmt.Errorf("pic18: reading %s: %w", b.opts.Input, err)
		}
		raw = s.Raw
	}
	if raw < 0 {
		raw = 0
	} else if raw > 1<<ResolutionBits-1 {
		raw = 1<<ResolutionBits - 1
	}

	b.mu.Lock()
	b.convErr = err
	if b.regs[ADCON2-sfrBase]&(1<<bitADFM) != 0 {
		b.regs[ADRESH-sfrBase] = byte(raw >> 8)
		b.regs[ADRESL-sfrBase] = byte(raw)
	} else {
		b.regs[ADRESH-sfrBase] = byte(raw >> 2)
		b.regs[ADRESL-sfrBase] = byte(raw << 6)
	}
	b.regs[ADCON0-sfrBase] &^= 1 << bitGO
	b.regs[PIR1-sfrBase] |= 1 << bitADIF
	intcon := b.regs[INTCON-sfrBase]
	fire := intcon&(1<<bitGIE) != 0 && intcon&(1<<bitPEIE) != 0 && b.regs[PIE1-sfrBase]&(1<<bitADIE) != 0
	b.mu.Unlock()

	if fire {
		select {
		case b.irq <- struct{}{}:
		default:
		}
	}
}

// EUSART transmitter.

// TXIF reports whether the transmit buffer is empty.
func (b *Bank) TXIF() bool { return b.Bit(PIR1, bitTXIF) }

// ClearTXIF clears the transmit-complete flag.
func (b *Bank) ClearTXIF() error { return b.SetBit(PIR1, bitTXIF, false) }

// WriteTXREG loads a byte in the transmit register.
func (b *Bank) WriteTXREG(c byte) error { return b.Write(TXREG, c) }

// TxErr returns the last error reported by the serial sink, if any.
func (b *Bank) TxErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txErr
}

func (b *Bank) transmit(c byte) error {
	b.mu.Lock()
	enabled := b.regs[TXSTA-sfrBase]&(1<<bitTXEN) != 0 && b.regs[RCSTA-sfrBase]&(1<<bitSPEN) != 0
	b.mu.Unlock()
	if !enabled {
		// The byte goes nowhere and TXIF never rises.
		return nil
	}
	if b.opts.Serial != nil {
		if _, err := b.opts.Serial.Write([]byte{c}); err != nil {
			b.mu.Lock()
			b.txErr = err
			b.mu.Unlock()
			return fmt.Errorf("pic18: transmit: %w", err)
		}
	}
	if b.opts.TxTime == 0 {
		return b.SetBit(PIR1, bitTXIF, true)
	}
	b.clock.AfterFunc(b.opts.TxTime, func() {
		_ = b.SetBit(PIR1, bitTXIF, true)
	})
	return nil
}

// BaudDivisor returns the SPBRG value for the asynchronous 8-bit baud rate
// generator. highSpeed mirrors the BRGH bit.
func BaudDivisor(fosc, baud physic.Frequency, highSpeed bool) byte {
	div := physic.Frequency(64)
	if highSpeed {
		div = 16
	}
	if baud <= 0 {
		return 0
	}
	n := int64(fosc/(div*baud)) - 1
	if n < 0 {
		return 0
	}
	if n > 0xFF {
		return 0xFF
	}
	return byte(n)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
