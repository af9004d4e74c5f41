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
	"sync"
	"sync/atomic"
)

// Subscription is an independent cursor over the feedback fan-out. It sees
// every feedback decoded after it was created, in decode order. When it falls
// more than the fan-out capacity behind, the oldest unread values are skipped.
type Subscription struct {
	link      *Link
	ch        chan Feedback
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// C returns the feedback channel. It is closed when the subscription is
// closed or the link stops.
func (s *Subscription) C() <-chan Feedback {
	return s.ch
}

// Next waits for the next feedback value
func (s *Subscription) Next(ctx context.Context) (Feedback, error) {
	select {
	case fb, ok := <-s.ch:
		if !ok {
			return nil, ErrChannelClosed
		}
		return fb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped returns how many feedback values this subscription skipped
// because it fell behind
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the fan-out. It is safe to call more
// than once and after the link has stopped.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		select {
		case s.link.unsubscribe <- s:
		case <-s.link.done:
		}
	})
}

// addSubscriber registers a new cursor. Called from the run goroutine.
func (l *Link) addSubscriber() *Subscription {
	sub := &Subscription{
		link: l,
		ch:   make(chan Feedback, l.config.FanoutCapacity),
	}
	l.subs[sub] = struct{}{}
	l.stats.subscribers.Add(1)
	return sub
}

// removeSubscriber closes a cursor. Called from the run goroutine.
func (l *Link) removeSubscriber(sub *Subscription) {
	if _, ok := l.subs[sub]; !ok {
		return
	}
	delete(l.subs, sub)
	close(sub.ch)
	l.stats.subscribers.Add(-1)
}

// publish hands fb to every subscriber without ever blocking the owner
func (l *Link) publish(fb Feedback) {
	l.stats.feedbackPublished.Add(1)
	for sub := range l.subs {
		l.deliver(sub, fb)
	}
}

// deliver makes room by skipping the oldest unread value when sub is full.
// The owner is the only sender on sub.ch, so after one receive the send
// below cannot block.
func (l *Link) deliver(sub *Subscription, fb Feedback) {
	select {
	case sub.ch <- fb:
		return
	default:
	}

	select {
	case <-sub.ch:
		sub.dropped.Add(1)
		l.stats.subscriberDrops.Add(1)
	default:
	}

	select {
	case sub.ch <- fb:
	default:
		sub.dropped.Add(1)
		l.stats.subscriberDrops.Add(1)
	}
}
