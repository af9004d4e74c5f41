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

// Package gpio drives the host-ready signal from a GPIO pin for boards
// where the microcontroller's ready input is not wired to a modem line
package gpio

import (
	"fmt"
	"sync"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Line implements morpheus.ControlLine on a GPIO output
type Line struct {
	pin       gpio.PinOut
	name      string
	mu        sync.Mutex
	activeLow bool
	ready     bool
}

// New initializes the periph host drivers and looks up pinName, for example
// "GPIO17". With activeLow set, ready drives the pin low.
func New(pinName string, activeLow bool) (*Line, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, morpheus.NewNotFoundError("gpio lookup", pinName)
	}
	return newLine(pin, pinName, activeLow), nil
}

func newLine(pin gpio.PinOut, name string, activeLow bool) *Line {
	return &Line{pin: pin, name: name, activeLow: activeLow}
}

// SetReady drives the pin to its ready or idle level
func (l *Line) SetReady(ready bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	level := gpio.Level(ready != l.activeLow)
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("GPIO %s out %s failed: %w", l.name, level, err)
	}
	l.ready = ready
	return nil
}

// Ready returns the last level set
func (l *Line) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Name returns the pin name
func (l *Line) Name() string {
	return l.name
}

var _ morpheus.ControlLine = (*Line)(nil)
