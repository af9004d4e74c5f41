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

package tarm

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"testing"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

type fakePort struct {
	readErr error
	data    []byte
	flushes int
	closes  int
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func (*fakePort) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakePort) Flush() error {
	f.flushes++
	return nil
}

func (f *fakePort) Close() error {
	f.closes++
	return nil
}

func TestOpen(t *testing.T) {
	t.Parallel()

	fake := &fakePort{data: []byte{0x55, 0xAA, 0x04, 0x04}}
	var got serial.Config

	transport, err := open("/dev/ttyACM0", 115200, 0, func(c *serial.Config) (port, error) {
		got = *c
		return fake, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", got.Name)
	assert.Equal(t, 115200, got.Baud)
	assert.Equal(t, DefaultReadTimeout, got.ReadTimeout)
	assert.Equal(t, byte(8), got.Size)
	assert.Equal(t, morpheus.TransportTarm, transport.Type())
	assert.Equal(t, "/dev/ttyACM0", transport.PortName())

	buf := make([]byte, 8)
	n, err := transport.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0xAA, 0x04, 0x04}, buf[:n])

	require.NoError(t, transport.ResetInputBuffer())
	assert.Equal(t, 1, fake.flushes)

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())
	assert.Equal(t, 1, fake.closes)
}

func TestRead_TimeoutIsNotAnError(t *testing.T) {
	t.Parallel()

	transport := &Transport{port: &fakePort{readErr: io.EOF}}
	n, err := transport.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)

	transport = &Transport{port: &fakePort{readErr: errors.New("EIO")}}
	_, err = transport.Read(make([]byte, 4))
	require.Error(t, err)
}

func TestOpen_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		openErr  error
		wantErr  error
		name     string
		wantKind morpheus.ErrorKind
	}{
		{
			name:     "missing device",
			openErr:  &fs.PathError{Op: "open", Path: "/dev/ttyACM9", Err: fs.ErrNotExist},
			wantErr:  morpheus.ErrPortNotFound,
			wantKind: morpheus.KindNotFound,
		},
		{
			name:     "permission denied",
			openErr:  &fs.PathError{Op: "open", Path: "/dev/ttyACM9", Err: fs.ErrPermission},
			wantErr:  morpheus.ErrPermission,
			wantKind: morpheus.KindOpen,
		},
		{
			name:     "other failure",
			openErr:  fmt.Errorf("termios: %w", errors.New("invalid argument")),
			wantErr:  morpheus.ErrOpenPort,
			wantKind: morpheus.KindOpen,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := open("/dev/ttyACM9", 115200, time.Second, func(*serial.Config) (port, error) {
				return nil, tt.openErr
			})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, morpheus.KindOf(err))
		})
	}

	_, err := open("/dev/ttyACM0", -1, 0, nil)
	require.ErrorIs(t, err, morpheus.ErrInvalidParameter)
}
