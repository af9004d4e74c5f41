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

	"github.com/ZaparooProject/go-morpheus/internal/frame"
)

// Startup errors
var (
	ErrEnumerate    = errors.New("failed to enumerate ports")
	ErrPortNotFound = errors.New("port not found")
	ErrOpenPort     = errors.New("can't open port")
	ErrPortBusy     = errors.New("port busy")
	ErrPermission   = errors.New("permission denied")
)

// Session errors
var (
	ErrTransportIO      = errors.New("transport I/O failure")
	ErrChecksumMismatch = frame.ErrChecksumMismatch
	ErrInvalidLength    = frame.ErrInvalidLength
	ErrDecode           = errors.New("feedback decode failed")
	ErrChannelClosed    = errors.New("link channel closed")
	ErrResponseTimeout  = errors.New("no feedback before timeout")
	ErrPayloadTooLarge  = errors.New("payload too large for a single frame")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorKind classifies link errors
type ErrorKind int

const (
	// KindUnknown is used for errors that carry no classification.
	KindUnknown ErrorKind = iota
	// KindEnumeration means the available transports could not be listed.
	KindEnumeration
	// KindNotFound means the requested device is absent from the enumerated set.
	KindNotFound
	// KindOpen means the device exists but could not be opened or configured.
	KindOpen
	// KindIO is a read or write failure other than a timeout.
	KindIO
	// KindChecksum is a received frame that failed its integrity check.
	KindChecksum
	// KindDecode is a valid frame the payload codec could not interpret.
	KindDecode
	// KindChannelClosed means the owner task has already terminated.
	KindChannelClosed
)

// String returns the human-readable name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindEnumeration:
		return "Failed to enumerate ports"
	case KindNotFound:
		return "Port not found"
	case KindOpen:
		return "Can't open port"
	case KindIO:
		return "Transport I/O failure"
	case KindChecksum:
		return "Checksum mismatch"
	case KindDecode:
		return "Decode failure"
	case KindChannelClosed:
		return "Channel closed"
	default:
		return "Unknown error"
	}
}

// LinkError represents an error on the serial link with context about the
// operation and port involved
type LinkError struct {
	Err  error
	Op   string
	Port string
	Kind ErrorKind
}

func (e *LinkError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s on %s: %v", e.Kind, e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// NewLinkError wraps err with the operation, port and kind
func NewLinkError(op, port string, kind ErrorKind, err error) *LinkError {
	return &LinkError{Op: op, Port: port, Kind: kind, Err: err}
}

// NewEnumerationError creates an error for a failed port listing
func NewEnumerationError(op string, err error) *LinkError {
	return NewLinkError(op, "", KindEnumeration, fmt.Errorf("%w: %w", ErrEnumerate, err))
}

// NewNotFoundError creates an error for a port absent from the enumerated set
func NewNotFoundError(op, port string) *LinkError {
	return NewLinkError(op, port, KindNotFound, ErrPortNotFound)
}

// NewOpenError creates an error for a port that exists but cannot be opened.
// cause may be ErrPortBusy or ErrPermission to refine the reason.
func NewOpenError(op, port string, cause error) *LinkError {
	return NewLinkError(op, port, KindOpen, fmt.Errorf("%w: %w", ErrOpenPort, cause))
}

// NewIOError creates an error for a device read or write failure
func NewIOError(op, port string, err error) *LinkError {
	return NewLinkError(op, port, KindIO, fmt.Errorf("%w: %w", ErrTransportIO, err))
}

// KindOf returns the classification carried by err, if any
func KindOf(err error) ErrorKind {
	var linkErr *LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Kind
	}

	switch {
	case errors.Is(err, ErrChannelClosed):
		return KindChannelClosed
	case errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrInvalidLength):
		return KindChecksum
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrTransportIO):
		return KindIO
	case errors.Is(err, ErrPortNotFound):
		return KindNotFound
	case errors.Is(err, ErrEnumerate):
		return KindEnumeration
	case errors.Is(err, ErrOpenPort):
		return KindOpen
	default:
		return KindUnknown
	}
}

// IsRecoverable reports whether err is handled inside a running session: the
// frame or operation is dropped and the link stays up. Startup failures and a
// closed channel are not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindIO, KindChecksum, KindDecode:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err must abort establishing a link
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindEnumeration, KindNotFound, KindOpen:
		return true
	default:
		return false
	}
}

// Describe returns the human-readable startup message for err, naming the
// failure kind when one is known
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if kind := KindOf(err); kind != KindUnknown {
		return fmt.Sprintf("%s (%v)", kind, err)
	}
	return err.Error()
}
