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

// Package polling sends a command to the controller on a fixed schedule and
// reports the feedback it gets back
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/rs/zerolog"
)

// Poller errors
var (
	ErrPollerRunning = errors.New("poller is already running")
	ErrNoRequester   = errors.New("requester cannot be nil")
	ErrNoCommand     = errors.New("command cannot be nil")
)

// Requester sends one command and waits for its feedback. morpheus.Client
// implements it.
type Requester interface {
	Request(ctx context.Context, cmd morpheus.Command, timeout time.Duration) (morpheus.Feedback, error)
}

// Config holds configuration options for the Poller
type Config struct {
	Command        morpheus.Command
	InitialDelay   time.Duration
	Interval       time.Duration
	RequestTimeout time.Duration
	// Count is the number of requests to send; 0 polls until stopped
	Count int
}

// DefaultConfig returns the schedule used by the command line demo
func DefaultConfig(cmd morpheus.Command) *Config {
	return &Config{
		Command:        cmd,
		InitialDelay:   100 * time.Millisecond,
		Interval:       500 * time.Millisecond,
		RequestTimeout: morpheus.DefaultRequestTimeout,
		Count:          20,
	}
}

// Callbacks defines callback functions for poll results
type Callbacks struct {
	OnFeedback func(fb morpheus.Feedback)
	OnTimeout  func()
	OnError    func(err error)
}

// Metrics tracks operational metrics for a Poller
type Metrics struct {
	Requests    int64         // Requests sent
	Responses   int64         // Requests answered in time
	Timeouts    int64         // Requests that timed out
	Errors      int64         // Requests that failed otherwise
	LastLatency time.Duration // Round trip of the last answered request
}

// Poller issues requests on a schedule
type Poller struct {
	client    Requester
	config    *Config
	callbacks Callbacks
	log       zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	mu        sync.Mutex
	running   atomic.Bool

	requests    atomic.Int64
	responses   atomic.Int64
	timeouts    atomic.Int64
	errors      atomic.Int64
	lastLatency atomic.Int64
}

// NewPoller creates a poller. A nil config selects DefaultConfig with no
// command, which is rejected.
func NewPoller(client Requester, config *Config, callbacks Callbacks) (*Poller, error) {
	if client == nil {
		return nil, ErrNoRequester
	}
	if config == nil || config.Command == nil {
		return nil, ErrNoCommand
	}
	if config.Interval <= 0 || config.Count < 0 {
		return nil, fmt.Errorf("%w: interval %s count %d", morpheus.ErrInvalidParameter, config.Interval, config.Count)
	}

	return &Poller{
		client:    client,
		config:    config,
		callbacks: callbacks,
		log:       morpheus.Logger().With().Str("component", "poller").Logger(),
	}, nil
}

// Start begins polling in the background. Use Stop or Wait to end it.
func (p *Poller) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrPollerRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.err = nil
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer p.running.Store(false)

		err := p.loop(runCtx)
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
	}()
	return nil
}

// Run polls in the calling goroutine until the schedule completes, ctx is
// done or the link closes
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	return p.Wait()
}

// Stop cancels polling and blocks until the loop has exited
func (p *Poller) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := p.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Wait blocks until the loop has exited and returns why it stopped
func (p *Poller) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// IsRunning reports whether the loop is active
func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

func (p *Poller) loop(ctx context.Context) error {
	if err := sleep(ctx, p.config.InitialDelay); err != nil {
		return err
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for i := 0; p.config.Count == 0 || i < p.config.Count; i++ {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := p.poll(ctx); err != nil {
			return err
		}
	}
	return nil
}

// poll sends one request. Only a closed link or a cancelled context end the
// loop; timeouts and other failures are reported and polling continues.
func (p *Poller) poll(ctx context.Context) error {
	p.requests.Add(1)
	start := time.Now()

	fb, err := p.client.Request(ctx, p.config.Command, p.config.RequestTimeout)
	switch {
	case err == nil:
		p.responses.Add(1)
		p.lastLatency.Store(int64(time.Since(start)))
		if p.callbacks.OnFeedback != nil {
			p.callbacks.OnFeedback(fb)
		}
	case errors.Is(err, morpheus.ErrResponseTimeout):
		p.timeouts.Add(1)
		p.log.Debug().Str("command", p.config.Command.CommandName()).Msg("no feedback")
		if p.callbacks.OnTimeout != nil {
			p.callbacks.OnTimeout()
		}
	case errors.Is(err, morpheus.ErrChannelClosed):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		p.errors.Add(1)
		p.log.Warn().Err(err).Msg("request failed")
		if p.callbacks.OnError != nil {
			p.callbacks.OnError(err)
		}
	}
	return nil
}

// GetMetrics returns current operational metrics
func (p *Poller) GetMetrics() Metrics {
	return Metrics{
		Requests:    p.requests.Load(),
		Responses:   p.responses.Load(),
		Timeouts:    p.timeouts.Load(),
		Errors:      p.errors.Load(),
		LastLatency: time.Duration(p.lastLatency.Load()),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
