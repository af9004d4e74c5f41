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
	"errors"
	"fmt"
	"testing"

	"github.com/ZaparooProject/go-morpheus/internal/frame"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorKind
	}{
		{name: "nil error", err: nil, want: KindUnknown},
		{name: "plain error", err: errors.New("boom"), want: KindUnknown},
		{name: "enumeration", err: NewEnumerationError("list ports", errors.New("no sysfs")), want: KindEnumeration},
		{name: "not found", err: NewNotFoundError("open", "/dev/ttyUSB9"), want: KindNotFound},
		{name: "open busy", err: NewOpenError("open", "/dev/ttyUSB0", ErrPortBusy), want: KindOpen},
		{name: "io", err: NewIOError("read", "/dev/ttyUSB0", errors.New("EIO")), want: KindIO},
		{name: "checksum", err: &frame.ChecksumError{Length: 6, Want: 9, Got: 8}, want: KindChecksum},
		{name: "invalid length", err: fmt.Errorf("%w: 2", frame.ErrInvalidLength), want: KindChecksum},
		{name: "decode", err: fmt.Errorf("%w: short payload", ErrDecode), want: KindDecode},
		{name: "channel closed", err: fmt.Errorf("send: %w", ErrChannelClosed), want: KindChannelClosed},
		{name: "bare sentinel", err: ErrPortNotFound, want: KindNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsRecoverableAndFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err         error
		name        string
		recoverable bool
		fatal       bool
	}{
		{name: "nil error", err: nil},
		{name: "io", err: NewIOError("write", "COM3", errors.New("EIO")), recoverable: true},
		{name: "checksum", err: frame.ErrChecksumMismatch, recoverable: true},
		{name: "decode", err: ErrDecode, recoverable: true},
		{name: "enumeration", err: NewEnumerationError("list ports", errors.New("EACCES")), fatal: true},
		{name: "not found", err: NewNotFoundError("open", "COM9"), fatal: true},
		{name: "open", err: NewOpenError("open", "COM3", ErrPermission), fatal: true},
		{name: "channel closed", err: ErrChannelClosed},
		{name: "timeout", err: ErrResponseTimeout},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.recoverable, IsRecoverable(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestLinkError(t *testing.T) {
	t.Parallel()

	cause := errors.New("device or resource busy")
	err := NewOpenError("open", "/dev/ttyACM0", fmt.Errorf("%w: %w", ErrPortBusy, cause))

	assert.Equal(t,
		"Can't open port open on /dev/ttyACM0: can't open port: port busy: device or resource busy",
		err.Error())
	assert.ErrorIs(t, err, ErrOpenPort)
	assert.ErrorIs(t, err, ErrPortBusy)
	assert.ErrorIs(t, err, cause)

	var linkErr *LinkError
	assert.ErrorAs(t, fmt.Errorf("connect: %w", err), &linkErr)
	assert.Equal(t, "/dev/ttyACM0", linkErr.Port)

	noPort := NewEnumerationError("list ports", errors.New("no sysfs"))
	assert.Equal(t, "Failed to enumerate ports list ports: failed to enumerate ports: no sysfs", noPort.Error())
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Describe(nil))
	assert.Equal(t, "boom", Describe(errors.New("boom")))
	assert.Equal(t,
		"Port not found (Port not found open on /dev/ttyUSB3: port not found)",
		Describe(NewNotFoundError("open", "/dev/ttyUSB3")))
}

func TestErrorKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Failed to enumerate ports", KindEnumeration.String())
	assert.Equal(t, "Port not found", KindNotFound.String())
	assert.Equal(t, "Can't open port", KindOpen.String())
	assert.Equal(t, "Unknown error", ErrorKind(99).String())
}
