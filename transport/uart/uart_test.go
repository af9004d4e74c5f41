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

package uart

import (
	"errors"
	"testing"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort records the calls the transport makes. The embedded interface
// covers the methods the transport never uses.
type fakePort struct {
	serial.Port
	timeoutErr  error
	readTimeout time.Duration
	rts         []bool
	dtr         []bool
	resets      int
	closes      int
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.readTimeout = t
	return f.timeoutErr
}

func (f *fakePort) SetRTS(v bool) error {
	f.rts = append(f.rts, v)
	return nil
}

func (f *fakePort) SetDTR(v bool) error {
	f.dtr = append(f.dtr, v)
	return nil
}

func (f *fakePort) ResetInputBuffer() error {
	f.resets++
	return nil
}

func (*fakePort) Read(p []byte) (int, error) {
	return copy(p, []byte{0x55, 0xAA}), nil
}

func (*fakePort) Write(p []byte) (int, error) {
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.closes++
	return nil
}

func testConfig(port *fakePort, ports []string, listErr, openErr error) (*config, *serial.Mode) {
	mode := &serial.Mode{}
	return &config{
		list: func() ([]string, error) { return ports, listErr },
		open: func(_ string, m *serial.Mode) (serial.Port, error) {
			*mode = *m
			if openErr != nil {
				return nil, openErr
			}
			return port, nil
		},
		readTimeout: DefaultReadTimeout,
		line:        LineRTS,
	}, mode
}

// TestTransportCreation verifies basic transport creation and properties
func TestTransportCreation(t *testing.T) {
	t.Parallel()

	transport := &Transport{portName: "/dev/ttyUSB0"}

	assert.Equal(t, "/dev/ttyUSB0", transport.PortName())
	assert.Equal(t, morpheus.TransportUART, transport.Type())
	assert.False(t, transport.IsConnected(), "uninitialized transport is not connected")
	require.NoError(t, transport.Close())
}

func TestOpen_Success(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	cfg, mode := testConfig(port, []string{"/dev/ttyS0", "/dev/ttyFAKE0"}, nil, nil)

	transport, err := open("/dev/ttyFAKE0", DefaultBaudRate, cfg)
	require.NoError(t, err)

	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, DefaultReadTimeout, port.readTimeout)
	assert.True(t, transport.IsConnected())

	require.NoError(t, transport.ResetInputBuffer())
	require.NoError(t, transport.SetReady(true))
	require.NoError(t, transport.SetReady(false))
	assert.Equal(t, 1, port.resets)
	assert.Equal(t, []bool{true, false}, port.rts)
	assert.Empty(t, port.dtr)

	buf := make([]byte, 4)
	n, err := transport.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0xAA}, buf[:n])

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())
	assert.Equal(t, 1, port.closes)
	assert.False(t, transport.IsConnected())
}

func TestOpen_ControlLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    Line
		wantRTS []bool
		wantDTR []bool
	}{
		{name: "rts", line: LineRTS, wantRTS: []bool{true}},
		{name: "dtr", line: LineDTR, wantDTR: []bool{true}},
		{name: "none", line: LineNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port := &fakePort{}
			cfg, _ := testConfig(port, []string{"COM3"}, nil, nil)
			WithLine(tt.line)(cfg)

			transport, err := open("COM3", 9600, cfg)
			require.NoError(t, err)
			require.NoError(t, transport.SetReady(true))

			assert.Equal(t, tt.wantRTS, port.rts)
			assert.Equal(t, tt.wantDTR, port.dtr)
		})
	}
}

func TestOpen_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		listErr  error
		openErr  error
		timeErr  error
		wantErr  error
		name     string
		portName string
		baud     int
		wantKind morpheus.ErrorKind
		closes   int
	}{
		{
			name:     "enumeration fails",
			portName: "/dev/ttyFAKE0",
			baud:     DefaultBaudRate,
			listErr:  errors.New("no sysfs"),
			wantErr:  morpheus.ErrEnumerate,
			wantKind: morpheus.KindEnumeration,
		},
		{
			name:     "port not present",
			portName: "/dev/ttyFAKE5",
			baud:     DefaultBaudRate,
			wantErr:  morpheus.ErrPortNotFound,
			wantKind: morpheus.KindNotFound,
		},
		{
			name:     "open fails",
			portName: "/dev/ttyFAKE0",
			baud:     DefaultBaudRate,
			openErr:  errors.New("device or resource busy"),
			wantErr:  morpheus.ErrOpenPort,
			wantKind: morpheus.KindOpen,
		},
		{
			name:     "read timeout cannot be set",
			portName: "/dev/ttyFAKE0",
			baud:     DefaultBaudRate,
			timeErr:  errors.New("inappropriate ioctl"),
			wantErr:  morpheus.ErrOpenPort,
			wantKind: morpheus.KindOpen,
			closes:   1,
		},
		{
			name:     "invalid baud rate",
			portName: "/dev/ttyFAKE0",
			baud:     0,
			wantErr:  morpheus.ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port := &fakePort{timeoutErr: tt.timeErr}
			cfg, _ := testConfig(port, []string{"/dev/ttyFAKE0"}, tt.listErr, tt.openErr)

			transport, err := open(tt.portName, tt.baud, cfg)
			require.Error(t, err)
			assert.Nil(t, transport)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, morpheus.KindOf(err))
			assert.Equal(t, tt.closes, port.closes)
		})
	}
}

func TestOpen_SkipLookup(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	cfg, _ := testConfig(port, nil, errors.New("unused"), nil)
	WithoutPortLookup()(cfg)
	WithReadTimeout(20 * time.Millisecond)(cfg)

	transport, err := open("/dev/ttyFAKE3", DefaultBaudRate, cfg)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, port.readTimeout)
	require.NoError(t, transport.Close())
}

func TestParseLine(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Line{"rts": LineRTS, "": LineRTS, "DTR": LineDTR, "none": LineNone} {
		got, err := ParseLine(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLine("cts")
	require.ErrorIs(t, err, morpheus.ErrInvalidParameter)
	assert.Equal(t, "dtr", LineDTR.String())
}
