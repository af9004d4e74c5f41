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
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-morpheus/internal/frame"
)

// MaxPayloadLength is the longest command payload a frame can carry
const MaxPayloadLength = frame.MaxPayloadLength

// Client is a handle to a running link. It is a small value: copy it freely
// to hand it to other goroutines. Copies and dropped handles do not affect
// the lifetime of the owner task.
type Client struct {
	link *Link
}

// Send encodes cmd with the link codec and enqueues the frame. When the
// outgoing queue is full Send blocks until there is room, ctx is done or the
// link shuts down. After shutdown it fails with ErrChannelClosed.
func (c Client) Send(ctx context.Context, cmd Command) error {
	if c.link == nil {
		return ErrChannelClosed
	}
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidParameter)
	}
	return c.SendPayload(ctx, c.link.codec.EncodeCommand(cmd))
}

// SendPayload frames an already encoded payload and enqueues it
func (c Client) SendPayload(ctx context.Context, payload []byte) error {
	l := c.link
	if l == nil {
		return ErrChannelClosed
	}
	if len(payload) > MaxPayloadLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadLength)
	}
	frm := frame.Encode(payload)

	l.gate.RLock()
	defer l.gate.RUnlock()
	if l.closed {
		return ErrChannelClosed
	}

	select {
	case <-l.stop:
		return ErrChannelClosed
	default:
	}

	select {
	case l.outgoing <- frm:
		return nil
	case <-l.stop:
		return ErrChannelClosed
	case <-ctx.Done():
		return fmt.Errorf("send cancelled: %w", ctx.Err())
	}
}

// Subscribe returns a new cursor over the feedback fan-out. The cursor sees
// feedback decoded from this point on; earlier frames are never replayed.
func (c Client) Subscribe() (*Subscription, error) {
	l := c.link
	if l == nil {
		return nil, ErrChannelClosed
	}

	reply := make(chan *Subscription, 1)
	select {
	case l.subscribe <- reply:
		return <-reply, nil
	case <-l.done:
		return nil, ErrChannelClosed
	}
}

// Shutdown asks the owner task to stop. It returns immediately, may be
// called any number of times from any handle, and never fails. Use
// Link.Wait to wait for the device to be released.
func (c Client) Shutdown() {
	if c.link != nil {
		c.link.requestShutdown()
	}
}

// Done is closed once the owner task has terminated
func (c Client) Done() <-chan struct{} {
	if c.link == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.link.done
}

// Request subscribes, sends cmd and returns the first feedback that arrives
// within timeout, or ErrResponseTimeout.
//
// The protocol carries no transaction identifier, so the returned feedback is
// simply the next one decoded. This is only correct while at most one command
// is outstanding on the link; concurrent callers may receive each other's
// feedback.
func (c Client) Request(ctx context.Context, cmd Command, timeout time.Duration) (Feedback, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	sub, err := c.Subscribe()
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	if err := c.Send(ctx, cmd); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case fb, ok := <-sub.C():
		if !ok {
			return nil, ErrChannelClosed
		}
		return fb, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrResponseTimeout, cmd.CommandName(), timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
	}
}
