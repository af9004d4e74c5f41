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

// Command is a typed instruction for the microcontroller
type Command interface {
	CommandName() string
}

// Feedback is a typed telemetry value decoded from a received frame
type Feedback interface {
	FeedbackName() string
}

// Codec converts between typed values and frame payloads. The link treats it as
// a pair of pure functions: EncodeCommand must be total and deterministic, and
// DecodeFeedback may fail for payloads matching no known layout. Decode
// failures are logged and the frame dropped; they never stop the link.
type Codec interface {
	EncodeCommand(cmd Command) []byte
	DecodeFeedback(payload []byte) (Feedback, error)
}
