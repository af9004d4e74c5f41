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

// Package tarm provides an alternative serial transport built on
// github.com/tarm/serial. It has no modem line control, so a link on it
// needs an external control line or none at all.
package tarm

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/tarm/serial"
)

// DefaultReadTimeout bounds a single read
const DefaultReadTimeout = 100 * time.Millisecond

// port is the subset of *serial.Port the transport uses
type port interface {
	io.ReadWriteCloser
	Flush() error
}

type opener func(*serial.Config) (port, error)

func openPort(c *serial.Config) (port, error) {
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Transport implements morpheus.Transport on a tarm serial port
type Transport struct {
	port     port
	portName string
	mu       sync.Mutex
	closed   bool
}

// Open opens name at baudRate, 8N1, with the given read timeout. A zero
// timeout selects DefaultReadTimeout.
func Open(name string, baudRate int, readTimeout time.Duration) (*Transport, error) {
	return open(name, baudRate, readTimeout, openPort)
}

func open(name string, baudRate int, readTimeout time.Duration, openFn opener) (*Transport, error) {
	if baudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate %d", morpheus.ErrInvalidParameter, baudRate)
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	p, err := openFn(&serial.Config{
		Name:        name,
		Baud:        baudRate,
		ReadTimeout: readTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, morpheus.NewLinkError("open", name, morpheus.KindNotFound,
				fmt.Errorf("%w: %w", morpheus.ErrPortNotFound, err))
		case errors.Is(err, fs.ErrPermission):
			return nil, morpheus.NewOpenError("open", name, fmt.Errorf("%w: %w", morpheus.ErrPermission, err))
		default:
			return nil, morpheus.NewOpenError("open", name, err)
		}
	}

	return &Transport{port: p, portName: name}, nil
}

// Read reads available bytes. The library reports an expired read timeout
// as io.EOF, which is returned here as 0, nil.
func (t *Transport) Read(buf []byte) (int, error) {
	n, err := t.port.Read(buf)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("tarm read failed: %w", err)
	}
	return n, nil
}

// Write writes buf to the port
func (t *Transport) Write(buf []byte) (int, error) {
	n, err := t.port.Write(buf)
	if err != nil {
		return n, fmt.Errorf("tarm write failed: %w", err)
	}
	return n, nil
}

// ResetInputBuffer discards unread input
func (t *Transport) ResetInputBuffer() error {
	if err := t.port.Flush(); err != nil {
		return fmt.Errorf("tarm flush failed: %w", err)
	}
	return nil
}

// Close closes the port once
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("tarm close failed: %w", err)
	}
	return nil
}

// PortName returns the device name
func (t *Transport) PortName() string {
	return t.portName
}

// Type returns the transport type
func (*Transport) Type() morpheus.TransportType {
	return morpheus.TransportTarm
}

var (
	_ morpheus.Transport    = (*Transport)(nil)
	_ morpheus.InputFlusher = (*Transport)(nil)
	_ morpheus.PortNamer    = (*Transport)(nil)
)
