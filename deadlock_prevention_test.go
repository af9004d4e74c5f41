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
	"testing"
	"time"

	"github.com/ZaparooProject/go-morpheus/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	defer goleak.VerifyTestMain(m)
	m.Run()
}

// TestConcurrentSendersKeepPerSenderOrder verifies that frames from many
// handles are all written and that each sender's frames stay in order
func TestConcurrentSendersKeepPerSenderOrder(t *testing.T) {
	t.Parallel()

	mock, client, link := startMockLink(t, WithQueueSize(4))

	const (
		senders   = 8
		perSender = 25
	)

	var wg sync.WaitGroup
	wg.Add(senders)
	for g := 0; g < senders; g++ {
		go func(handle Client, id byte) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				assert.NoError(t, handle.SendPayload(context.Background(), []byte{id, byte(i)}))
			}
		}(link.Client(), byte(g))
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return link.Stats().FramesWritten == senders*perSender
	}, 2*time.Second, time.Millisecond)

	var dec frame.Decoder
	payloads, errs := dec.Decode(mock.Written())
	require.Empty(t, errs)
	require.Len(t, payloads, senders*perSender)

	next := make(map[byte]byte)
	for _, p := range payloads {
		require.Len(t, p, 2)
		assert.Equal(t, next[p[0]], p[1], "sender %d out of order", p[0])
		next[p[0]] = p[1] + 1
	}
	client.Shutdown()
}

// TestShutdownReleasesBlockedSenders verifies that senders waiting for room
// in a full queue are released by shutdown and that every accepted frame is
// either written or accounted as discarded
func TestShutdownReleasesBlockedSenders(t *testing.T) {
	t.Parallel()

	mock, client, link := startMockLink(t, WithQueueSize(2))
	mock.BlockWrites()
	ctx := context.Background()

	require.NoError(t, client.SendPayload(ctx, []byte{0x01}))
	require.Eventually(t, func() bool {
		return len(link.outgoing) == 0
	}, time.Second, time.Millisecond)
	require.NoError(t, client.SendPayload(ctx, []byte{0x02}))
	require.NoError(t, client.SendPayload(ctx, []byte{0x03}))

	const waiting = 3
	results := make(chan error, waiting)
	for i := 0; i < waiting; i++ {
		go func() {
			results <- client.SendPayload(ctx, []byte{0x04})
		}()
	}

	client.Shutdown()
	for i := 0; i < waiting; i++ {
		select {
		case err := <-results:
			require.ErrorIs(t, err, ErrChannelClosed)
		case <-time.After(time.Second):
			t.Fatal("blocked sender was not released by shutdown")
		}
	}

	mock.UnblockWrites()
	require.NoError(t, link.Wait())

	stats := link.Stats()
	assert.Equal(t, uint64(3), stats.FramesWritten+stats.WriteErrors+stats.DiscardedFrames)
}

// TestShutdownDuringTraffic races senders, subscribers and inbound frames
// against shutdown
func TestShutdownDuringTraffic(t *testing.T) {
	t.Parallel()

	mock, client, link := startMockLink(t)
	stopInject := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for {
			select {
			case <-stopInject:
				return
			default:
				mock.Inject(frame.Encode([]byte{0x01, 0x02, 0x03}))
				time.Sleep(time.Millisecond)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			if err := client.SendPayload(context.Background(), []byte{0x01, 0x02}); err != nil {
				assert.ErrorIs(t, err, ErrChannelClosed)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			sub, err := client.Subscribe()
			if err != nil {
				assert.ErrorIs(t, err, ErrChannelClosed)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			_, _ = sub.Next(ctx)
			cancel()
			sub.Close()
		}
	}()

	time.Sleep(30 * time.Millisecond)
	client.Shutdown()

	select {
	case <-link.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("link did not stop under load")
	}
	close(stopInject)
	wg.Wait()

	assert.True(t, mock.IsClosed())
	assert.Zero(t, link.Stats().Subscribers)
}

// TestShutdownWithStuckReader verifies that closing the transport unblocks a
// read that would otherwise never time out
func TestShutdownWithStuckReader(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetReadTimeout(time.Hour)

	client, link, err := Start(mock, testCodec{})
	require.NoError(t, err)

	client.Shutdown()
	select {
	case <-link.Done():
	case <-time.After(time.Second):
		t.Fatal("shutdown blocked on a pending read")
	}
	require.NoError(t, link.Wait())
}
