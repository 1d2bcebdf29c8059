// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"time"

	"github.com/GermanBionicSystems/knobstep/bands"
	"github.com/GermanBionicSystems/knobstep/sampler"
)

// Event type identifiers.
const (
	TypeSampled uint32 = iota + 1
	TypeRevolved
)

// Sampled is published after every handled conversion. Err is set when the
// sample could not be read or actuated.
type Sampled struct {
	Reading sampler.Reading
	Err     error
	At      time.Time
}

// Type implements event.Event.
func (Sampled) Type() uint32 { return TypeSampled }

// Revolved is published after every motor revolution.
type Revolved struct {
	Band bands.Band
	Took time.Duration
	Err  error
}

// Type implements event.Event.
func (Revolved) Type() uint32 { return TypeRevolved }
