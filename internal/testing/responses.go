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

// Package testing holds payloads and frames shared by package tests
package testing

import "github.com/ZaparooProject/go-morpheus/internal/frame"

// Payload identifiers for reference
const (
	GroupSystem = 0x01
	IDVersion   = 0x02
)

// GetVersionPayload is the payload of the GetVersion command
var GetVersionPayload = []byte{GroupSystem, IDVersion}

// GetVersionFrame is GetVersion as it appears on the wire
var GetVersionFrame = []byte{0x55, 0xAA, 0x06, 0x01, 0x02, 0x09}

// BuildVersionPayload creates a Version feedback payload
func BuildVersionPayload(major, minor, patch byte) []byte {
	return []byte{GroupSystem, IDVersion, major, minor, patch}
}

// BuildVersionFrame creates a framed Version feedback
func BuildVersionFrame(major, minor, patch byte) []byte {
	return frame.Encode(BuildVersionPayload(major, minor, patch))
}

// BuildCorruptFrame frames payload and then breaks its checksum
func BuildCorruptFrame(payload []byte) []byte {
	frm := frame.Encode(payload)
	frm[len(frm)-1]++
	return frm
}

// VersionResponder answers every GetVersion frame with a Version feedback,
// for use with MockTransport.SetResponder
func VersionResponder(major, minor, patch byte) func([]byte) []byte {
	return func(frm []byte) []byte {
		if string(frm) == string(GetVersionFrame) {
			return BuildVersionFrame(major, minor, patch)
		}
		return nil
	}
}
