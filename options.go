// go-morpheus
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-morpheus.
//
// go-morpheus is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-morpheus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-morpheus; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package morpheus

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for a link
const (
	DefaultQueueSize        = 10
	DefaultFanoutCapacity   = 16
	DefaultReadBufferSize   = 256
	DefaultWriteRetries     = 3
	DefaultWriteRetryDelay  = 5 * time.Millisecond
	DefaultReadErrorBackoff = 100 * time.Millisecond
	DefaultRequestTimeout   = 500 * time.Millisecond
)

// LinkConfig contains configuration options for a Link
type LinkConfig struct {
	// PortName is only used for log and error context
	PortName string
	// QueueSize bounds the outgoing frame queue; senders block when it is full
	QueueSize int
	// FanoutCapacity is the number of unread feedback values each subscriber
	// may hold before the oldest are skipped
	FanoutCapacity int
	// ReadBufferSize is the size of a single device read
	ReadBufferSize int
	// WriteRetries bounds how many times a write that makes no progress is retried
	WriteRetries int
	// WriteRetryDelay is the pause between such retries
	WriteRetryDelay time.Duration
	// ReadErrorBackoff is the pause after a read error before reading again
	ReadErrorBackoff time.Duration
}

// DefaultLinkConfig returns default link configuration
func DefaultLinkConfig() *LinkConfig {
	return &LinkConfig{
		QueueSize:        DefaultQueueSize,
		FanoutCapacity:   DefaultFanoutCapacity,
		ReadBufferSize:   DefaultReadBufferSize,
		WriteRetries:     DefaultWriteRetries,
		WriteRetryDelay:  DefaultWriteRetryDelay,
		ReadErrorBackoff: DefaultReadErrorBackoff,
	}
}

// Option is a functional option for configuring a Link
type Option func(*Link) error

// WithConfig replaces the whole link configuration
func WithConfig(config *LinkConfig) Option {
	return func(l *Link) error {
		if config == nil {
			return fmt.Errorf("%w: nil link config", ErrInvalidParameter)
		}
		if err := config.validate(); err != nil {
			return err
		}
		cfg := *config
		l.config = &cfg
		return nil
	}
}

func (c *LinkConfig) validate() error {
	switch {
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue size %d", ErrInvalidParameter, c.QueueSize)
	case c.FanoutCapacity < 1:
		return fmt.Errorf("%w: fan-out capacity %d", ErrInvalidParameter, c.FanoutCapacity)
	case c.ReadBufferSize < 1:
		return fmt.Errorf("%w: read buffer size %d", ErrInvalidParameter, c.ReadBufferSize)
	case c.WriteRetries < 0, c.WriteRetryDelay < 0, c.ReadErrorBackoff < 0:
		return fmt.Errorf("%w: negative retry or backoff setting", ErrInvalidParameter)
	}
	return nil
}

// WithQueueSize sets the capacity of the outgoing frame queue
func WithQueueSize(size int) Option {
	return func(l *Link) error {
		if size < 1 {
			return fmt.Errorf("%w: queue size %d", ErrInvalidParameter, size)
		}
		l.config.QueueSize = size
		return nil
	}
}

// WithFanoutCapacity sets the per-subscriber feedback buffer
func WithFanoutCapacity(capacity int) Option {
	return func(l *Link) error {
		if capacity < 1 {
			return fmt.Errorf("%w: fan-out capacity %d", ErrInvalidParameter, capacity)
		}
		l.config.FanoutCapacity = capacity
		return nil
	}
}

// WithReadBufferSize sets the size of a single device read
func WithReadBufferSize(size int) Option {
	return func(l *Link) error {
		if size < 1 {
			return fmt.Errorf("%w: read buffer size %d", ErrInvalidParameter, size)
		}
		l.config.ReadBufferSize = size
		return nil
	}
}

// WithWriteRetries sets how often a stalled write is retried and the delay between attempts
func WithWriteRetries(retries int, delay time.Duration) Option {
	return func(l *Link) error {
		if retries < 0 || delay < 0 {
			return fmt.Errorf("%w: write retries %d delay %s", ErrInvalidParameter, retries, delay)
		}
		l.config.WriteRetries = retries
		l.config.WriteRetryDelay = delay
		return nil
	}
}

// WithReadErrorBackoff sets the pause after a failed read
func WithReadErrorBackoff(backoff time.Duration) Option {
	return func(l *Link) error {
		if backoff < 0 {
			return fmt.Errorf("%w: read error backoff %s", ErrInvalidParameter, backoff)
		}
		l.config.ReadErrorBackoff = backoff
		return nil
	}
}

// WithControlLine uses line as the readiness signal instead of the
// transport's own control line
func WithControlLine(line ControlLine) Option {
	return func(l *Link) error {
		l.line = line
		return nil
	}
}

// WithLogger sets the logger used by the link
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Link) error {
		l.log = logger
		return nil
	}
}

// WithPortName names the device in logs and errors
func WithPortName(name string) Option {
	return func(l *Link) error {
		l.config.PortName = name
		return nil
	}
}
