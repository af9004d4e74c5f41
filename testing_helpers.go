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
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrMockClosed is returned by MockTransport operations after Close
var ErrMockClosed = errors.New("mock transport closed")

// MockTransport is an in-memory Transport for tests. Inbound bytes are
// scripted with Inject, outbound bytes are recorded, and the control line,
// input flushes and close calls are observable. Reads time out after
// ReadTimeout like a serial port opened with a short timeout.
type MockTransport struct {
	inbound      chan []byte
	closedCh     chan struct{}
	writeGate    chan struct{}
	responder    func(frm []byte) []byte
	readErr      error
	writeErr     error
	resetErr     error
	lineErr      error
	pending      []byte
	writes       [][]byte
	lineHistory  []bool
	readTimeout  time.Duration
	maxWrite     int
	resets       int
	closes       int
	mu           sync.Mutex
	ready        bool
	closed       bool
	stickyWrites bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		inbound:     make(chan []byte, 256),
		closedCh:    make(chan struct{}),
		readTimeout: 5 * time.Millisecond,
	}
}

// Inject queues bytes to be returned by Read
func (m *MockTransport) Inject(p []byte) {
	chunk := append([]byte(nil), p...)
	select {
	case m.inbound <- chunk:
	case <-m.closedCh:
	}
}

// SetReadTimeout changes how long Read waits for injected bytes
func (m *MockTransport) SetReadTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = timeout
}

// SetReadError makes the next Read fail with err
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes the next Write fail with err. With sticky set every
// Write fails until the error is cleared with a nil err.
func (m *MockTransport) SetWriteError(err error, sticky bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
	m.stickyWrites = sticky
}

// SetResetError makes ResetInputBuffer fail with err
func (m *MockTransport) SetResetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetErr = err
}

// SetLineError makes SetReady fail with err
func (m *MockTransport) SetLineError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lineErr = err
}

// SetMaxWrite limits how many bytes a single Write accepts; 0 means no limit
func (m *MockTransport) SetMaxWrite(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxWrite = n
}

// SetResponder installs a function that is called with every written chunk;
// a non-nil result is injected as inbound bytes
func (m *MockTransport) SetResponder(fn func(frm []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// BlockWrites makes Write block until UnblockWrites or Close
func (m *MockTransport) BlockWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeGate == nil {
		m.writeGate = make(chan struct{})
	}
}

// UnblockWrites releases writes blocked by BlockWrites
func (m *MockTransport) UnblockWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeGate != nil {
		close(m.writeGate)
		m.writeGate = nil
	}
}

// Read implements Transport
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrMockClosed
	}
	if m.readErr != nil {
		err := m.readErr
		m.readErr = nil
		m.mu.Unlock()
		return 0, err
	}
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	timeout := m.readTimeout
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case chunk := <-m.inbound:
		n := copy(p, chunk)
		if n < len(chunk) {
			m.mu.Lock()
			m.pending = append(m.pending, chunk[n:]...)
			m.mu.Unlock()
		}
		return n, nil
	case <-m.closedCh:
		return 0, ErrMockClosed
	case <-timer.C:
		return 0, nil
	}
}

// Write implements Transport
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	gate := m.writeGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-m.closedCh:
			return 0, ErrMockClosed
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrMockClosed
	}
	if m.writeErr != nil {
		err := m.writeErr
		if !m.stickyWrites {
			m.writeErr = nil
		}
		m.mu.Unlock()
		return 0, err
	}

	n := len(p)
	if m.maxWrite > 0 && n > m.maxWrite {
		n = m.maxWrite
	}
	chunk := append([]byte(nil), p[:n]...)
	m.writes = append(m.writes, chunk)
	responder := m.responder
	m.mu.Unlock()

	if responder != nil {
		if resp := responder(chunk); resp != nil {
			m.Inject(resp)
		}
	}
	return n, nil
}

// ResetInputBuffer implements InputFlusher
func (m *MockTransport) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resets++
	m.pending = nil
	for {
		select {
		case <-m.inbound:
		default:
			return nil
		}
	}
}

// SetReady implements ControlLine
func (m *MockTransport) SetReady(ready bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lineErr != nil {
		return m.lineErr
	}
	m.ready = ready
	m.lineHistory = append(m.lineHistory, ready)
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	if !m.closed {
		m.closed = true
		close(m.closedCh)
		if m.writeGate != nil {
			close(m.writeGate)
			m.writeGate = nil
		}
	}
	return nil
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// PortName implements PortNamer
func (*MockTransport) PortName() string {
	return "mock"
}

// Written returns every byte written so far, in order
func (m *MockTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Join(m.writes, nil)
}

// WriteCount returns the number of Write calls that succeeded
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// Ready returns the current control line state
func (m *MockTransport) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// LineHistory returns every control line change in order
func (m *MockTransport) LineHistory() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.lineHistory...)
}

// Resets returns how many times input was flushed
func (m *MockTransport) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Closes returns how many times Close was called
func (m *MockTransport) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// IsClosed reports whether Close was called
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
