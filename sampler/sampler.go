// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sampler turns completed 10-bit conversions of the knob into speed
// percentages and hands them to a band dispatcher.
//
// The sampler is armed once with Start. Every call to OnConversionComplete
// consumes one result and re-arms the converter as its last action, so at
// most one conversion is ever in flight.
package sampler

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/knobstep/bands"
)

// MaxCount is the largest scaled count.
const MaxCount = 255

var (
	// ErrRead is returned when the conversion result cannot be read. The
	// sample is dropped and the next conversion still armed.
	ErrRead = errors.New("sampler: conversion read failed")

	// ErrInvalidSetting is returned by New when a collaborator is missing.
	ErrInvalidSetting = errors.New("sampler: invalid setting")
)

// ADC is a software triggered 10-bit converter.
type ADC interface {
	// StartConversion sets the GO bit.
	StartConversion() error
	// ReadResult returns the last result, right justified.
	ReadResult() (uint16, error)
	// ClearADIF acknowledges the conversion-complete flag.
	ClearADIF() error
}

// Handler acts on a speed percentage.
type Handler interface {
	Dispatch(pct float64) (bands.Band, error)
}

// Reading is one processed sample.
type Reading struct {
	Raw     uint16
	Count   uint8
	Percent float64
	Band    bands.Band
}

// Scale drops the two least significant bits of a 10-bit sample.
func Scale(raw uint16) uint8 {
	return uint8((raw & 0x3FF) >> 2)
}

// Percent converts a scaled count to a percentage in [0, 100].
func Percent(count uint8) float64 {
	return float64(count) * 100 / MaxCount
}

// Sampler connects an ADC to a Handler.
type Sampler struct {
	adc ADC
	h   Handler
}

// New returns a Sampler reading adc and dispatching to h.
func New(adc ADC, h Handler) (*Sampler, error) {
	if adc == nil || h == nil {
		return nil, fmt.Errorf("%w: nil collaborator", ErrInvalidSetting)
	}
	return &Sampler{adc: adc, h: h}, nil
}

// Start arms the first conversion.
func (s *Sampler) Start() error {
	if err := s.adc.StartConversion(); err != nil {
		return fmt.Errorf("sampler: start: %w", err)
	}
	return nil
}

// OnConversionComplete processes the pending result: read, scale, convert,
// dispatch, acknowledge, re-arm.
//
// It blocks while the handler runs. On a read error the dispatch is skipped
// but the flag is still cleared and the next conversion armed; the returned
// error wraps ErrRead.
func (s *Sampler) OnConversionComplete() (Reading, error) {
	var r Reading
	var errs []error
	raw, err := s.adc.ReadResult()
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrRead, err))
	} else {
		r.Raw = raw
		r.Count = Scale(raw)
		r.Percent = Percent(r.Count)
		b, err := s.h.Dispatch(r.Percent)
		r.Band = b
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.adc.ClearADIF(); err != nil {
		errs = append(errs, fmt.Errorf("sampler: acknowledge: %w", err))
	}
	if err := s.adc.StartConversion(); err != nil {
		errs = append(errs, fmt.Errorf("sampler: re-arm: %w", err))
	}
	return r, errors.Join(errs...)
}
