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

// Package retry provides the bounded retry loop used when pushing bytes to a device
package retry

import (
	"errors"
	"time"
)

// ErrExhausted is returned when an operation still asks to be retried after
// the last allowed attempt.
var ErrExhausted = errors.New("retries exhausted")

// Operation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry     func(attempt int)
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// Do executes an operation with retry logic
func Do[T any](config Config, operation Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt + 1)
		}

		if config.RetryDelay > 0 {
			time.Sleep(config.RetryDelay)
		}
	}

	if config.Description != "" {
		return zero, &ExhaustedError{Description: config.Description, Attempts: config.MaxRetries + 1}
	}
	return zero, ErrExhausted
}

// ExhaustedError names the operation that ran out of attempts.
type ExhaustedError struct {
	Description string
	Attempts    int
}

func (e *ExhaustedError) Error() string {
	return e.Description + ": " + ErrExhausted.Error()
}

func (*ExhaustedError) Unwrap() error {
	return ErrExhausted
}
