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

import "sync/atomic"

// Stats is a snapshot of link counters
type Stats struct {
	FramesWritten     uint64 // frames written to the device in full
	BytesWritten      uint64 // bytes of those frames
	WriteErrors       uint64 // frames that could not be written
	FramesReceived    uint64 // frames that passed the checksum
	ChecksumErrors    uint64 // frames dropped for a checksum mismatch
	InvalidLengths    uint64 // frames dropped for a length byte below 4
	DecodeErrors      uint64 // valid frames the codec could not interpret
	ReadErrors        uint64 // device reads that failed other than by timeout
	FeedbackPublished uint64 // feedback values handed to the fan-out
	SubscriberDrops   uint64 // feedback values skipped by lagging subscribers
	DiscardedFrames   uint64 // queued frames dropped at shutdown
	Subscribers       int64  // live subscriptions
}

// linkStats holds the counters behind Stats. Only the owner goroutine and its
// reader pump write them; any goroutine may read them.
type linkStats struct {
	framesWritten     atomic.Uint64
	bytesWritten      atomic.Uint64
	writeErrors       atomic.Uint64
	framesReceived    atomic.Uint64
	checksumErrors    atomic.Uint64
	invalidLengths    atomic.Uint64
	decodeErrors      atomic.Uint64
	readErrors        atomic.Uint64
	feedbackPublished atomic.Uint64
	subscriberDrops   atomic.Uint64
	discardedFrames   atomic.Uint64
	subscribers       atomic.Int64
}

func (s *linkStats) snapshot() Stats {
	return Stats{
		FramesWritten:     s.framesWritten.Load(),
		BytesWritten:      s.bytesWritten.Load(),
		WriteErrors:       s.writeErrors.Load(),
		FramesReceived:    s.framesReceived.Load(),
		ChecksumErrors:    s.checksumErrors.Load(),
		InvalidLengths:    s.invalidLengths.Load(),
		DecodeErrors:      s.decodeErrors.Load(),
		ReadErrors:        s.readErrors.Load(),
		FeedbackPublished: s.feedbackPublished.Load(),
		SubscriberDrops:   s.subscriberDrops.Load(),
		DiscardedFrames:   s.discardedFrames.Load(),
		Subscribers:       s.subscribers.Load(),
	}
}
