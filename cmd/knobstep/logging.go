// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: l}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}

// statusLog is the serial sink when no port is configured: every
// carriage-return terminated line is logged.
type statusLog struct {
	log *slog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *statusLog) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range p {
		if c == '\r' || c == '\n' {
			if s.buf.Len() > 0 {
				s.log.Info("status", "text", strings.TrimSpace(s.buf.String()))
				s.buf.Reset()
			}
			continue
		}
		s.buf.WriteByte(c)
	}
	return len(p), nil
}
