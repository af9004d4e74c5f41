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

package server

import (
	"strconv"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// registerMetrics registers HTTP metrics and exports the link counters,
// which are read from the link on every scrape
func registerMetrics(registry *prometheus.Registry, link LinkState) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "morpheus",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "morpheus",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	registry.MustRegister(m.requests, m.duration)

	counters := []struct {
		value func(morpheus.Stats) uint64
		name  string
		help  string
	}{
		{func(s morpheus.Stats) uint64 { return s.FramesWritten }, "frames_written_total", "Frames written to the device."},
		{func(s morpheus.Stats) uint64 { return s.BytesWritten }, "bytes_written_total", "Bytes written to the device."},
		{func(s morpheus.Stats) uint64 { return s.WriteErrors }, "write_errors_total", "Frames that could not be written."},
		{func(s morpheus.Stats) uint64 { return s.FramesReceived }, "frames_received_total", "Frames received with a valid checksum."},
		{func(s morpheus.Stats) uint64 { return s.ChecksumErrors }, "checksum_errors_total", "Frames dropped for a checksum mismatch."},
		{func(s morpheus.Stats) uint64 { return s.InvalidLengths }, "invalid_lengths_total", "Frames dropped for an invalid length byte."},
		{func(s morpheus.Stats) uint64 { return s.DecodeErrors }, "decode_errors_total", "Frames the codec could not decode."},
		{func(s morpheus.Stats) uint64 { return s.ReadErrors }, "read_errors_total", "Failed device reads."},
		{func(s morpheus.Stats) uint64 { return s.FeedbackPublished }, "feedback_published_total", "Feedback values published to subscribers."},
		{func(s morpheus.Stats) uint64 { return s.SubscriberDrops }, "subscriber_drops_total", "Feedback values skipped by lagging subscribers."},
		{func(s morpheus.Stats) uint64 { return s.DiscardedFrames }, "discarded_frames_total", "Queued frames discarded at shutdown."},
	}
	for _, c := range counters {
		value := c.value
		registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "morpheus",
				Subsystem: "link",
				Name:      c.name,
				Help:      c.help,
			},
			func() float64 { return float64(value(link.Stats())) },
		))
	}
	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "morpheus",
			Subsystem: "link",
			Name:      "subscribers",
			Help:      "Live feedback subscriptions.",
		},
		func() float64 { return float64(link.Stats().Subscribers) },
	))
	return m
}

func (m *httpMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.duration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
