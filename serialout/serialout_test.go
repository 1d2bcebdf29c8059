// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package serialout

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/conntest"

	"github.com/GermanBionicSystems/knobstep/pic18"
)

// fakeTx records the register protocol and completes after a few polls.
type fakeTx struct {
	ops   []string
	polls int
	left  int
}

func (f *fakeTx) ClearTXIF() error {
	f.ops = append(f.ops, "clear")
	return nil
}

func (f *fakeTx) WriteTXREG(c byte) error {
	f.ops = append(f.ops, "write "+string(c))
	f.left = f.polls
	return nil
}

func (f *fakeTx) TXIF() bool {
	if f.left > 0 {
		f.left--
		return false
	}
	return true
}

func TestSendByteProtocol(t *testing.T) {
	tx := &fakeTx{polls: 3}
	d, err := New(tx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SendString("ab"); err != nil {
		t.Fatal(err)
	}
	want := []string{"clear", "write a", "clear", "write b"}
	if diff := cmp.Diff(tx.ops, want); diff != "" {
		t.Errorf("ops (-got +want):\n%s", diff)
	}
}

// stuckTx never completes; every poll moves the fake clock forward.
type stuckTx struct {
	clock clockwork.FakeClock
}

func (s *stuckTx) ClearTXIF() error        { return nil }
func (s *stuckTx) WriteTXREG(c byte) error { return nil }
func (s *stuckTx) TXIF() bool {
	s.clock.Advance(time.Millisecond)
	return false
}

func TestTimeout(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d, err := New(&stuckTx{clock: fc}, &Opts{Timeout: 10 * time.Millisecond, Clock: fc})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SendByte('x'); !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendByte() = %v, want %v", err, ErrTimeout)
	}
	n, err := d.Write([]byte("yz"))
	if n != 0 || !errors.Is(err, ErrTimeout) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("New(nil) = %v", err)
	}
	if _, err := NewConn(nil, nil); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("NewConn(nil) = %v", err)
	}
	if _, err := NewWriter(nil, nil); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("NewWriter(nil) = %v", err)
	}
}

func TestConn(t *testing.T) {
	rec := &conntest.Record{}
	d, err := NewConn(rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SendString("Velocidade Maxima \r"); err != nil {
		t.Fatal(err)
	}
	var got []byte
	for _, op := range rec.Ops {
		if len(op.W) != 1 {
			t.Fatalf("transaction of %d bytes", len(op.W))
		}
		got = append(got, op.W...)
	}
	if string(got) != "Velocidade Maxima \r" {
		t.Errorf("sent %q", got)
	}
	if d.String() != "serialout(record)" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestConnError(t *testing.T) {
	pb := &conntest.Playback{DontPanic: true}
	d, err := NewConn(pb, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SendByte('a'); err == nil {
		t.Fatal("expected error from empty playback")
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewWriter(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := d.Write([]byte("Velocidade Minima \r"))
	if err != nil || n != 19 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if buf.String() != "Velocidade Minima \r" {
		t.Errorf("sent %q", buf.String())
	}
}

func TestBank(t *testing.T) {
	var buf bytes.Buffer
	b := pic18.New(&pic18.Opts{Serial: &buf})
	if err := b.Write(pic18.RCSTA, 0x90); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(pic18.TXSTA, 0x24); err != nil {
		t.Fatal(err)
	}
	d, err := New(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SendString("hi\r"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hi\r" {
		t.Errorf("sent %q", buf.String())
	}
}

func TestBankTxTime(t *testing.T) {
	var buf bytes.Buffer
	b := pic18.New(&pic18.Opts{Serial: &buf, TxTime: time.Millisecond})
	if err := b.Write(pic18.RCSTA, 0x90); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(pic18.TXSTA, 0x24); err != nil {
		t.Fatal(err)
	}
	d, err := New(b, &Opts{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SendString("ok"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "ok" {
		t.Errorf("sent %q", buf.String())
	}
}
