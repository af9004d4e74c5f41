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

// Package frame provides frame encoding and the receive state machine for the
// Morpheus serial protocol.
//
// On the wire a frame is [0x55, 0xAA, LEN, PAYLOAD..., CSUM] where LEN is the
// payload length plus 4 and CSUM is the 8-bit wrapping sum of LEN and every
// payload byte.
package frame

// Header bytes
const (
	Header1 = 0x55
	Header2 = 0xAA
)

// Frame size limits
const (
	// Overhead is the value added to the payload length to form LEN. It counts
	// both header bytes, the length byte and the checksum byte.
	Overhead = 4

	// MaxPayloadLength is the longest payload a single LEN byte can describe.
	MaxPayloadLength = 0xFF - Overhead

	// MinFrameLength is the size of a frame carrying an empty payload.
	MinFrameLength = 2 + 1 + 1
)
