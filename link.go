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
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ZaparooProject/go-morpheus/internal/frame"
	"github.com/ZaparooProject/go-morpheus/internal/retry"
	"github.com/rs/zerolog"
)

// Link is the owner task of one serial link.
//
// Thread Safety: a Link owns its Transport exclusively. A single owner
// goroutine writes outgoing frames, runs the frame decoder and publishes
// feedback; a reader pump goroutine belonging to the same task is the only
// reader of the device. Everything else talks to the task through a Client,
// which only exchanges values over channels. The Link methods themselves are
// safe for concurrent use.
type Link struct {
	transport Transport
	codec     Codec
	line      ControlLine
	config    *LinkConfig
	log       zerolog.Logger

	outgoing    chan []byte
	chunks      chan []byte
	subscribe   chan chan *Subscription
	unsubscribe chan *Subscription

	stop     chan struct{}
	stopOnce sync.Once
	pumpStop chan struct{}
	pumpDone chan struct{}
	done     chan struct{}

	// gate lets the owner wait out senders that are between checking for
	// shutdown and enqueueing, so no frame is accepted after the final drain
	gate   sync.RWMutex
	closed bool

	// owned by the run goroutine
	subs    map[*Subscription]struct{}
	decoder frame.Decoder

	stats linkStats
	err   error
}

// Start takes ownership of transport and starts the owner task.
//
// Before the task starts, buffered input is discarded (when the transport
// implements InputFlusher) and the control line is asserted. Start returns a
// live Client and the task handle. Callers must eventually call
// Client.Shutdown and then Link.Wait so the task is never leaked.
//
// If Start fails the transport is left open and still belongs to the caller.
func Start(transport Transport, codec Codec, opts ...Option) (Client, *Link, error) {
	if transport == nil {
		return Client{}, nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	if codec == nil {
		return Client{}, nil, fmt.Errorf("%w: nil codec", ErrInvalidParameter)
	}

	l := &Link{
		transport: transport,
		codec:     codec,
		config:    DefaultLinkConfig(),
		log:       Logger(),
	}
	if namer, ok := transport.(PortNamer); ok {
		l.config.PortName = namer.PortName()
	}
	if line, ok := transport.(ControlLine); ok {
		l.line = line
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return Client{}, nil, err
		}
	}

	l.log = l.log.With().
		Str("port", l.config.PortName).
		Str("transport", string(transport.Type())).
		Logger()

	l.outgoing = make(chan []byte, l.config.QueueSize)
	l.chunks = make(chan []byte)
	l.subscribe = make(chan chan *Subscription)
	l.unsubscribe = make(chan *Subscription)
	l.stop = make(chan struct{})
	l.pumpStop = make(chan struct{})
	l.pumpDone = make(chan struct{})
	l.done = make(chan struct{})
	l.subs = make(map[*Subscription]struct{})

	if err := l.prepare(); err != nil {
		return Client{}, nil, err
	}

	go l.pump()
	go l.run()

	l.log.Info().Msg("link started")
	return Client{link: l}, l, nil
}

// prepare clears stale input and signals readiness to the remote end
func (l *Link) prepare() error {
	if flusher, ok := l.transport.(InputFlusher); ok {
		if err := flusher.ResetInputBuffer(); err != nil {
			return NewOpenError("reset input", l.config.PortName, err)
		}
	}
	if l.line != nil {
		if err := l.line.SetReady(true); err != nil {
			return NewOpenError("assert control line", l.config.PortName, err)
		}
	}
	return nil
}

// Client returns a new handle to the link
func (l *Link) Client() Client {
	return Client{link: l}
}

// PortName returns the device name used in logs and errors
func (l *Link) PortName() string {
	return l.config.PortName
}

// Done is closed once the owner task has terminated
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the owner task has terminated after a shutdown request
// and returns any error from releasing the device.
func (l *Link) Wait() error {
	<-l.done
	return l.err
}

// Stats returns a snapshot of the link counters
func (l *Link) Stats() Stats {
	return l.stats.snapshot()
}

// requestShutdown closes the stop channel exactly once
func (l *Link) requestShutdown() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// run is the owner loop. It waits for whichever event is ready first.
func (l *Link) run() {
	for {
		select {
		case <-l.stop:
			l.shutdown()
			return
		case frm := <-l.outgoing:
			l.write(frm)
		case chunk := <-l.chunks:
			l.feed(chunk)
		case reply := <-l.subscribe:
			reply <- l.addSubscriber()
		case sub := <-l.unsubscribe:
			l.removeSubscriber(sub)
		}
	}
}

// shutdown releases the device and every channel owned by the task
func (l *Link) shutdown() {
	close(l.pumpStop)

	var errs []error
	if l.line != nil {
		if err := l.line.SetReady(false); err != nil {
			l.log.Warn().Err(err).Msg("failed to deassert control line")
			errs = append(errs, NewIOError("deassert control line", l.config.PortName, err))
		}
	}
	// Closing unblocks a pending read on transports without a read timeout
	if err := l.transport.Close(); err != nil {
		l.log.Warn().Err(err).Msg("failed to close transport")
		errs = append(errs, NewIOError("close", l.config.PortName, err))
	}
	<-l.pumpDone

	l.gate.Lock()
	l.closed = true
	l.gate.Unlock()

	discarded := 0
	for drained := false; !drained; {
		select {
		case <-l.outgoing:
			discarded++
		default:
			drained = true
		}
	}
	if discarded > 0 {
		l.stats.discardedFrames.Add(uint64(discarded))
		l.log.Warn().Int("frames", discarded).Msg("discarded queued frames at shutdown")
	}

	for sub := range l.subs {
		l.removeSubscriber(sub)
	}

	l.err = errors.Join(errs...)
	l.log.Info().Msg("link stopped")
	close(l.done)
}

// write pushes one frame to the device in full
func (l *Link) write(frm []byte) {
	written := 0
	_, err := retry.Do(retry.Config{
		Description: "write frame",
		MaxRetries:  l.config.WriteRetries,
		RetryDelay:  l.config.WriteRetryDelay,
	}, func() (int, bool, error) {
		for written < len(frm) {
			n, err := l.transport.Write(frm[written:])
			written += n
			if err != nil {
				return written, false, err
			}
			if n == 0 {
				return written, true, nil
			}
		}
		return written, false, nil
	})
	if err != nil {
		l.stats.writeErrors.Add(1)
		l.log.Warn().
			Err(NewIOError("write", l.config.PortName, err)).
			Int("written", written).
			Int("size", len(frm)).
			Msg("frame write failed")
		return
	}

	l.stats.framesWritten.Add(1)
	l.stats.bytesWritten.Add(uint64(len(frm)))
	debugf("TX: % X", frm)
}

// feed runs received bytes through the decoder and publishes completed frames
func (l *Link) feed(chunk []byte) {
	debugf("RX: % X", chunk)
	for _, b := range chunk {
		payload, err := l.decoder.Step(b)
		if err != nil {
			if errors.Is(err, frame.ErrInvalidLength) {
				l.stats.invalidLengths.Add(1)
			} else {
				l.stats.checksumErrors.Add(1)
			}
			l.log.Warn().Err(err).Msg("dropped frame")
			continue
		}
		if payload == nil {
			continue
		}

		l.stats.framesReceived.Add(1)
		fb, err := l.decode(payload)
		if err != nil {
			l.stats.decodeErrors.Add(1)
			l.log.Warn().Err(err).Hex("payload", payload).Msg("dropped frame")
			continue
		}
		l.publish(fb)
	}
}

// decode calls the codec, turning a panic into a decode error
func (l *Link) decode(payload []byte) (fb Feedback, err error) {
	defer func() {
		if r := recover(); r != nil {
			fb, err = nil, fmt.Errorf("%w: codec panic: %v", ErrDecode, r)
		}
	}()

	fb, err = l.codec.DecodeFeedback(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if fb == nil {
		return nil, fmt.Errorf("%w: codec returned no feedback", ErrDecode)
	}
	return fb, nil
}

// pump is the only reader of the device. It hands each chunk to the owner
// goroutine, which is the only user of the decoder.
func (l *Link) pump() {
	defer close(l.pumpDone)

	buf := make([]byte, l.config.ReadBufferSize)
	for {
		select {
		case <-l.pumpStop:
			return
		default:
		}

		n, err := l.transport.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case l.chunks <- chunk:
			case <-l.pumpStop:
				return
			}
		}
		if err == nil || isTimeout(err) {
			continue
		}

		select {
		case <-l.pumpStop:
			return
		default:
		}

		l.stats.readErrors.Add(1)
		l.log.Warn().Err(NewIOError("read", l.config.PortName, err)).Msg("device read failed")

		select {
		case <-l.pumpStop:
			return
		case <-time.After(l.config.ReadErrorBackoff):
		}
	}
}

// isTimeout reports whether err is a read timeout rather than a failure
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
