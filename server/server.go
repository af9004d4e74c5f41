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

// Package server exposes a running link over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Requester is the part of morpheus.Client the routes use
type Requester interface {
	Send(ctx context.Context, cmd morpheus.Command) error
	Request(ctx context.Context, cmd morpheus.Command, timeout time.Duration) (morpheus.Feedback, error)
}

// LinkState is the part of *morpheus.Link the routes use
type LinkState interface {
	Stats() morpheus.Stats
	Done() <-chan struct{}
	PortName() string
}

// Server serves the HTTP adapter
type Server struct {
	client         Requester
	link           LinkState
	router         *gin.Engine
	registry       *prometheus.Registry
	metrics        *httpMetrics
	log            zerolog.Logger
	started        time.Time
	requestTimeout time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithRequestTimeout sets how long /version waits for feedback
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
	}
}

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

// New builds the router for client and link
func New(client Requester, link LinkState, opts ...Option) *Server {
	s := &Server{
		client:         client,
		link:           link,
		registry:       prometheus.NewRegistry(),
		log:            morpheus.Logger(),
		started:        time.Now(),
		requestTimeout: morpheus.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.metrics = registerMetrics(s.registry, link)

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger(s.log), s.metrics.middleware())
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the Prometheus registry behind /metrics
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.log.Info().Str("addr", listener.Addr().String()).Msg("http server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-errCh
	return nil
}
