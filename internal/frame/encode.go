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

// Checksum returns the frame checksum for a payload: an 8-bit accumulator
// seeded with the length byte to which every payload byte is added. The sum
// wraps at 256 on both the host and the microcontroller side.
func Checksum(length byte, payload []byte) byte {
	sum := length
	for _, b := range payload {
		sum += b
	}
	return sum
}

// Length returns the LEN byte that describes a payload of n bytes.
func Length(n int) byte {
	return byte(n + Overhead)
}

// Encode builds the wire frame carrying payload.
//
// Encode never fails. Payloads longer than MaxPayloadLength cannot be
// described by the length byte, so callers must reject them beforehand.
func Encode(payload []byte) []byte {
	length := Length(len(payload))

	frm := make([]byte, 0, len(payload)+MinFrameLength)
	frm = append(frm, Header1, Header2, length)
	frm = append(frm, payload...)
	frm = append(frm, Checksum(length, payload))
	return frm
}
