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

package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch indicates a frame whose checksum byte does not match
	// the accumulated sum. The frame is discarded.
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")

	// ErrInvalidLength indicates a length byte too small to describe a frame.
	ErrInvalidLength = errors.New("frame: invalid length byte")
)

// ChecksumError describes a rejected frame.
type ChecksumError struct {
	Length byte // LEN byte of the rejected frame
	Want   byte // checksum accumulated while receiving
	Got    byte // checksum byte found on the wire
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame: checksum mismatch (len=%d want=%02X got=%02X)", e.Length, e.Want, e.Got)
}

func (*ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// State is a position in the receive state machine.
type State uint8

const (
	// StateIdle waits for the first header byte.
	StateIdle State = iota
	// StateHeader2 waits for the second header byte.
	StateHeader2
	// StateHeaderOK expects the length byte.
	StateHeaderOK
	// StateReceiving accumulates payload bytes.
	StateReceiving
	// StateWaitChecksum expects the checksum byte.
	StateWaitChecksum
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateHeader2:
		return "Header2"
	case StateHeaderOK:
		return "HeaderOk"
	case StateReceiving:
		return "Receiving"
	case StateWaitChecksum:
		return "WaitCSum"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Decoder recognizes frames in a byte stream one byte at a time. State
// persists between calls, so a frame may be split across any number of reads.
//
// The machine is strictly positional: once a header has been accepted, header
// bytes inside the payload or checksum are data, and resynchronization only
// happens after a frame completes or is rejected.
//
// The zero value is ready to use. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf    []byte
	state  State
	length byte
	sum    byte
}

// State returns the current state.
func (d *Decoder) State() State {
	return d.state
}

// Reset returns the decoder to StateIdle and drops any partial frame.
func (d *Decoder) Reset() {
	d.state = StateIdle
	d.buf = d.buf[:0]
	d.length = 0
	d.sum = 0
}

// Step feeds one byte to the state machine.
//
// It returns a non-nil payload when b completes a valid frame, or an error
// when b completes a frame that must be discarded. In both cases the decoder is
// back in StateIdle afterwards. Otherwise both results are nil.
func (d *Decoder) Step(b byte) ([]byte, error) {
	switch d.state {
	case StateIdle:
		if b == Header1 {
			d.state = StateHeader2
		}
	case StateHeader2:
		if b == Header2 {
			d.state = StateHeaderOK
		} else {
			d.state = StateIdle
		}
	case StateHeaderOK:
		return nil, d.acceptLength(b)
	case StateReceiving:
		d.buf = append(d.buf, b)
		d.sum += b
		if len(d.buf)+Overhead >= int(d.length) {
			d.state = StateWaitChecksum
		}
	case StateWaitChecksum:
		return d.finish(b)
	default:
		d.Reset()
	}
	return nil, nil
}

// acceptLength seeds the accumulator with the length byte.
func (d *Decoder) acceptLength(b byte) error {
	d.buf = d.buf[:0]
	d.length = b
	d.sum = b

	switch {
	case b < Overhead:
		d.Reset()
		return fmt.Errorf("%w: %d", ErrInvalidLength, b)
	case b == Overhead:
		d.state = StateWaitChecksum
	default:
		d.state = StateReceiving
	}
	return nil
}

// finish checks the checksum byte and releases the payload.
func (d *Decoder) finish(b byte) ([]byte, error) {
	defer d.Reset()

	if b != d.sum {
		return nil, &ChecksumError{Length: d.length, Want: d.sum, Got: b}
	}

	payload := make([]byte, len(d.buf))
	copy(payload, d.buf)
	return payload, nil
}

// Decode feeds a chunk of bytes and collects every payload and error it
// produced, in stream order.
func (d *Decoder) Decode(p []byte) (payloads [][]byte, errs []error) {
	for _, b := range p {
		payload, err := d.Step(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if payload != nil {
			payloads = append(payloads, payload)
		}
	}
	return payloads, errs
}
