// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package serialout sends status text one byte at a time through a transmit
// register, polling its transmit-complete flag after every byte.
//
// Any register bank exposing TXREG/TXIF works, as does a periph conn.Conn
// (for instance a connected uart.Port) or a plain io.Writer such as a host
// serial port.
package serialout

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
)

var (
	// ErrTimeout is returned when the transmit-complete flag does not rise
	// within Opts.Timeout.
	ErrTimeout = errors.New("serialout: transmit timeout")

	// ErrInvalidSetting is returned by New when given a nil transmitter.
	ErrInvalidSetting = errors.New("serialout: invalid setting")
)

// Transmitter is a transmit data register and its completion flag.
type Transmitter interface {
	// ClearTXIF clears the transmit-complete flag.
	ClearTXIF() error
	// WriteTXREG starts sending one byte.
	WriteTXREG(c byte) error
	// TXIF reports whether the last byte left.
	TXIF() bool
}

// Opts holds the configuration options.
type Opts struct {
	// Timeout bounds the wait for the transmit-complete flag. Zero waits
	// forever, the way the firmware does.
	Timeout time.Duration
	// Clock measures Timeout. Defaults to the real clock.
	Clock clockwork.Clock
}

// DefaultOpts waits forever.
var DefaultOpts = Opts{}

// Dev is a blocking serial text output.
type Dev struct {
	tx      Transmitter
	clock   clockwork.Clock
	timeout time.Duration

	mu sync.Mutex
}

// New returns a Dev sending through tx.
func New(tx Transmitter, opts *Opts) (*Dev, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transmitter", ErrInvalidSetting)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{tx: tx, clock: opts.Clock, timeout: opts.Timeout}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	return d, nil
}

// NewConn returns a Dev that sends every byte as a single write transaction
// on c.
func NewConn(c conn.Conn, opts *Opts) (*Dev, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil connection", ErrInvalidSetting)
	}
	return New(&lineTx{name: c.String(), send: func(b []byte) error { return c.Tx(b, nil) }}, opts)
}

// NewWriter returns a Dev that sends every byte as a single Write on w.
func NewWriter(w io.Writer, opts *Opts) (*Dev, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil writer", ErrInvalidSetting)
	}
	return New(&lineTx{name: fmt.Sprintf("%T", w), send: func(b []byte) error {
		_, err := w.Write(b)
		return err
	}}, opts)
}

func (d *Dev) String() string {
	if s, ok := d.tx.(fmt.Stringer); ok {
		return "serialout(" + s.String() + ")"
	}
	return "serialout"
}

// Halt implements conn.Resource. There is nothing to stop between bytes.
func (d *Dev) Halt() error {
	return nil
}

// SendByte sends c and blocks until the transmitter reports it is done.
func (d *Dev) SendByte(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendByte(c)
}

// SendString sends every byte of s in order.
func (d *Dev) SendString(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < len(s); i++ {
		if err := d.sendByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Write implements io.Writer.
func (d *Dev) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range p {
		if err := d.sendByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

func (d *Dev) sendByte(c byte) error {
	if err := d.tx.ClearTXIF(); err != nil {
		return err
	}
	if err := d.tx.WriteTXREG(c); err != nil {
		return err
	}
	start := d.clock.Now()
	for !d.tx.TXIF() {
		if d.timeout > 0 && d.clock.Since(start) >= d.timeout {
			return fmt.Errorf("%w: %#02x not sent after %s", ErrTimeout, c, d.timeout)
		}
		runtime.Gosched()
	}
	return nil
}

// lineTx turns a byte sink into a Transmitter that completes as soon as the
// write returns.
type lineTx struct {
	name string
	send func([]byte) error
	done bool
}

func (l *lineTx) String() string {
	return l.name
}

func (l *lineTx) ClearTXIF() error {
	l.done = false
	return nil
}

func (l *lineTx) WriteTXREG(c byte) error {
	if err := l.send([]byte{c}); err != nil {
		return err
	}
	l.done = true
	return nil
}

func (l *lineTx) TXIF() bool {
	return l.done
}

var _ io.Writer = &Dev{}
var _ conn.Resource = &Dev{}
