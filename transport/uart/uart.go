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

// Package uart provides the serial port transport for a morpheus link
package uart

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the line speed used by the microcontroller firmware
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single read so the link can notice shutdown
	DefaultReadTimeout = 100 * time.Millisecond
)

// Line selects the modem control line used as the host-ready signal
type Line int

const (
	// LineRTS drives Request To Send
	LineRTS Line = iota
	// LineDTR drives Data Terminal Ready
	LineDTR
	// LineNone leaves both modem lines alone
	LineNone
)

// ParseLine converts "rts", "dtr" or "none" to a Line
func ParseLine(s string) (Line, error) {
	switch s {
	case "rts", "RTS", "":
		return LineRTS, nil
	case "dtr", "DTR":
		return LineDTR, nil
	case "none":
		return LineNone, nil
	default:
		return LineNone, fmt.Errorf("%w: unknown control line %q", morpheus.ErrInvalidParameter, s)
	}
}

func (l Line) String() string {
	switch l {
	case LineRTS:
		return "rts"
	case LineDTR:
		return "dtr"
	default:
		return "none"
	}
}

type config struct {
	list        func() ([]string, error)
	open        func(string, *serial.Mode) (serial.Port, error)
	readTimeout time.Duration
	line        Line
	skipLookup  bool
}

// Option configures Open
type Option func(*config)

// WithReadTimeout sets how long a read waits for data before returning
// zero bytes
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.readTimeout = timeout
	}
}

// WithLine selects the control line driven by SetReady
func WithLine(line Line) Option {
	return func(c *config) {
		c.line = line
	}
}

// WithoutPortLookup skips checking the name against the enumerated ports.
// Pseudo terminals and udev symlinks are not listed by the enumerator.
func WithoutPortLookup() Option {
	return func(c *config) {
		c.skipLookup = true
	}
}

// Transport implements morpheus.Transport for a serial port
type Transport struct {
	port     serial.Port
	portName string
	line     Line
	mu       sync.Mutex
	closed   bool
}

// ListPorts returns the names of the serial ports present on the host
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, morpheus.NewEnumerationError("list ports", err)
	}
	return ports, nil
}

// Open opens portName at baudRate with 8 data bits, no parity and one stop
// bit. A port absent from the enumerated set fails with a not found error;
// one that exists but cannot be opened fails with an open error.
func Open(portName string, baudRate int, opts ...Option) (*Transport, error) {
	cfg := &config{
		list:        serial.GetPortsList,
		open:        serial.Open,
		readTimeout: DefaultReadTimeout,
		line:        LineRTS,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return open(portName, baudRate, cfg)
}

func open(portName string, baudRate int, cfg *config) (*Transport, error) {
	if baudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate %d", morpheus.ErrInvalidParameter, baudRate)
	}

	if !cfg.skipLookup {
		ports, err := cfg.list()
		if err != nil {
			return nil, morpheus.NewEnumerationError("list ports", err)
		}
		if !slices.Contains(ports, portName) {
			return nil, morpheus.NewNotFoundError("open", portName)
		}
	}

	if err := checkAccess(portName); err != nil {
		return nil, morpheus.NewOpenError("open", portName, fmt.Errorf("%w: %w", morpheus.ErrPermission, err))
	}

	port, err := cfg.open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, classifyOpenError(portName, err)
	}

	if err := port.SetReadTimeout(cfg.readTimeout); err != nil {
		_ = port.Close()
		return nil, morpheus.NewOpenError("set read timeout", portName, err)
	}

	return &Transport{
		port:     port,
		portName: portName,
		line:     cfg.line,
	}, nil
}

// classifyOpenError maps serial library failures onto link error kinds
func classifyOpenError(portName string, err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return morpheus.NewOpenError("open", portName, err)
	}

	switch portErr.Code() {
	case serial.PortNotFound:
		return morpheus.NewLinkError("open", portName, morpheus.KindNotFound,
			fmt.Errorf("%w: %w", morpheus.ErrPortNotFound, err))
	case serial.PortBusy:
		return morpheus.NewOpenError("open", portName, fmt.Errorf("%w: %w", morpheus.ErrPortBusy, err))
	case serial.PermissionDenied:
		return morpheus.NewOpenError("open", portName, fmt.Errorf("%w: %w", morpheus.ErrPermission, err))
	default:
		return morpheus.NewOpenError("open", portName, err)
	}
}

// Read reads available bytes. It returns 0, nil when the read timeout
// expires with no data.
func (t *Transport) Read(p []byte) (int, error) {
	n, err := t.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("UART read failed: %w", err)
	}
	return n, nil
}

// Write writes p to the port
func (t *Transport) Write(p []byte) (int, error) {
	n, err := t.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("UART write failed: %w", err)
	}
	return n, nil
}

// ResetInputBuffer discards bytes received but not yet read
func (t *Transport) ResetInputBuffer() error {
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("UART input flush failed: %w", err)
	}
	return nil
}

// SetReady drives the configured control line
func (t *Transport) SetReady(ready bool) error {
	var err error
	switch t.line {
	case LineRTS:
		err = t.port.SetRTS(ready)
	case LineDTR:
		err = t.port.SetDTR(ready)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("UART set %s failed: %w", t.line, err)
	}
	return nil
}

// Close closes the port. Closing twice is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.port == nil {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// IsConnected returns true while the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil && !t.closed
}

// PortName returns the name the port was opened with
func (t *Transport) PortName() string {
	return t.portName
}

// Type returns the transport type
func (*Transport) Type() morpheus.TransportType {
	return morpheus.TransportUART
}

var (
	_ morpheus.Transport    = (*Transport)(nil)
	_ morpheus.InputFlusher = (*Transport)(nil)
	_ morpheus.ControlLine  = (*Transport)(nil)
	_ morpheus.PortNamer    = (*Transport)(nil)
)
