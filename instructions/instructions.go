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

// Package instructions is the payload codec for the Morpheus microcontroller.
//
// Every payload starts with a group byte and an identifier byte. Commands
// sent by the host and the feedback returned by the microcontroller share the
// same identifiers.
package instructions

import (
	"errors"
	"fmt"

	morpheus "github.com/ZaparooProject/go-morpheus"
)

// Payload groups
const (
	GroupSystem byte = 0x01
)

// System identifiers
const (
	IDVersion byte = 0x02
)

// Decode errors
var (
	ErrShortPayload    = errors.New("payload too short")
	ErrUnknownFeedback = errors.New("unknown feedback")
)

// GetVersion asks the microcontroller for its firmware version
type GetVersion struct{}

// CommandName implements morpheus.Command
func (GetVersion) CommandName() string { return "GetVersion" }

// MarshalPayload returns the payload bytes of the command
func (GetVersion) MarshalPayload() []byte {
	return []byte{GroupSystem, IDVersion}
}

// Raw sends payload bytes unchanged
type Raw struct {
	Payload []byte
}

// CommandName implements morpheus.Command
func (Raw) CommandName() string { return "Raw" }

// MarshalPayload returns a copy of the raw payload
func (r Raw) MarshalPayload() []byte {
	return append([]byte{}, r.Payload...)
}

// Version is the firmware version reported by the microcontroller
type Version struct {
	Major uint8 `json:"major" cbor:"major"`
	Minor uint8 `json:"minor" cbor:"minor"`
	Patch uint8 `json:"patch" cbor:"patch"`
}

// FeedbackName implements morpheus.Feedback
func (Version) FeedbackName() string { return "Version" }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// payloadMarshaler is implemented by every command of this package
type payloadMarshaler interface {
	MarshalPayload() []byte
}

// Codec implements morpheus.Codec for the Morpheus instruction set
type Codec struct{}

// EncodeCommand returns the payload of cmd. Commands that do not come from
// this package encode to an empty payload.
func (Codec) EncodeCommand(cmd morpheus.Command) []byte {
	if m, ok := cmd.(payloadMarshaler); ok {
		return m.MarshalPayload()
	}
	return []byte{}
}

// DecodeFeedback parses a received payload
func (Codec) DecodeFeedback(payload []byte) (morpheus.Feedback, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(payload))
	}

	group, id := payload[0], payload[1]
	switch {
	case group == GroupSystem && id == IDVersion:
		v, err := decodeVersion(payload[2:])
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: group %02X id %02X", ErrUnknownFeedback, group, id)
	}
}

func decodeVersion(body []byte) (Version, error) {
	if len(body) < 3 {
		return Version{}, fmt.Errorf("%w: version needs 3 bytes, got %d", ErrShortPayload, len(body))
	}
	return Version{Major: body[0], Minor: body[1], Patch: body[2]}, nil
}

var _ morpheus.Codec = Codec{}
