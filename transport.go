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

// Transport is the raw byte source and sink of a link, normally an open
// serial device. A started Link owns its Transport exclusively: one goroutine
// reads and one goroutine writes, and nothing else may touch it.
type Transport interface {
	// Read reads available bytes. A read timeout is not an error: it returns
	// (0, nil) and the link simply reads again.
	Read(p []byte) (int, error)

	// Write writes bytes to the device. It may write fewer than len(p).
	Write(p []byte) (int, error)

	// Close closes the transport connection
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents a serial device driven by go.bug.st/serial.
	TransportUART TransportType = "uart"
	// TransportTarm represents a serial device driven by github.com/tarm/serial.
	TransportTarm TransportType = "tarm"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// InputFlusher is implemented by transports that can discard bytes already
// buffered by the driver. A link flushes input once, before it starts reading.
type InputFlusher interface {
	ResetInputBuffer() error
}

// ControlLine is an out-of-band signal line telling the remote end that the
// host is ready. The link asserts it after startup and deasserts it on
// shutdown. Serial transports implement it with RTS or DTR; an external line
// can be supplied with WithControlLine.
type ControlLine interface {
	SetReady(ready bool) error
}

// PortNamer is implemented by transports that know the device they opened
type PortNamer interface {
	PortName() string
}

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)
