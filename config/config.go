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

// Package config loads the command line tool's settings from a TOML file
package config

import (
	"fmt"
	"strings"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config holds every setting of the command line tool
type Config struct {
	Port           string
	Backend        string
	Line           string
	HTTPAddr       string
	LogLevel       string
	Detection      DetectionConfig
	Poll           PollConfig
	BaudRate       int
	QueueSize      int
	FanoutCapacity int
	ReadTimeout    time.Duration
	RequestTimeout time.Duration
}

// PollConfig is the GetVersion demo schedule
type PollConfig struct {
	Count        int
	Interval     time.Duration
	InitialDelay time.Duration
}

// DetectionConfig filters the port listing
type DetectionConfig struct {
	IgnorePaths []string
	Blocklist   []string
	USBOnly     bool
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Backend:        "uart",
		Line:           "rts",
		LogLevel:       "info",
		BaudRate:       115200,
		QueueSize:      morpheus.DefaultQueueSize,
		FanoutCapacity: morpheus.DefaultFanoutCapacity,
		ReadTimeout:    100 * time.Millisecond,
		RequestTimeout: morpheus.DefaultRequestTimeout,
		Poll: PollConfig{
			Count:        20,
			Interval:     500 * time.Millisecond,
			InitialDelay: 100 * time.Millisecond,
		},
	}
}

type fileConfig struct {
	Port           string        `toml:"port"`
	Backend        string        `toml:"backend"`
	Line           string        `toml:"line"`
	HTTPAddr       string        `toml:"http_addr"`
	LogLevel       string        `toml:"log_level"`
	ReadTimeout    string        `toml:"read_timeout"`
	RequestTimeout string        `toml:"request_timeout"`
	Poll           filePoll      `toml:"poll"`
	Detection      fileDetection `toml:"detection"`
	BaudRate       int           `toml:"baud_rate"`
	QueueSize      int           `toml:"queue_size"`
	FanoutCapacity int           `toml:"fanout_capacity"`
}

type filePoll struct {
	Interval     string `toml:"interval"`
	InitialDelay string `toml:"initial_delay"`
	Count        int    `toml:"count"`
}

type fileDetection struct {
	IgnorePaths []string `toml:"ignore_paths"`
	Blocklist   []string `toml:"blocklist"`
	USBOnly     bool     `toml:"usb_only"`
}

// Load reads path and overlays every key it defines onto Default
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("backend") {
		cfg.Backend = strings.ToLower(strings.TrimSpace(raw.Backend))
	}
	if meta.IsDefined("line") {
		cfg.Line = strings.ToLower(strings.TrimSpace(raw.Line))
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("queue_size") {
		cfg.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("fanout_capacity") {
		cfg.FanoutCapacity = raw.FanoutCapacity
	}

	durations := []struct {
		dst *time.Duration
		key []string
		raw string
	}{
		{dst: &cfg.ReadTimeout, key: []string{"read_timeout"}, raw: raw.ReadTimeout},
		{dst: &cfg.RequestTimeout, key: []string{"request_timeout"}, raw: raw.RequestTimeout},
		{dst: &cfg.Poll.Interval, key: []string{"poll", "interval"}, raw: raw.Poll.Interval},
		{dst: &cfg.Poll.InitialDelay, key: []string{"poll", "initial_delay"}, raw: raw.Poll.InitialDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", strings.Join(d.key, "."), err)
		}
		*d.dst = v
	}

	if meta.IsDefined("poll", "count") {
		cfg.Poll.Count = raw.Poll.Count
	}
	if meta.IsDefined("detection", "ignore_paths") {
		cfg.Detection.IgnorePaths = normalizeList(raw.Detection.IgnorePaths)
	}
	if meta.IsDefined("detection", "blocklist") {
		cfg.Detection.Blocklist = normalizeList(raw.Detection.Blocklist)
	}
	if meta.IsDefined("detection", "usb_only") {
		cfg.Detection.USBOnly = raw.Detection.USBOnly
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Validate checks values a flag or file could have set out of range
func (c Config) Validate() error {
	switch {
	case c.BaudRate <= 0:
		return fmt.Errorf("%w: baud rate %d", morpheus.ErrInvalidParameter, c.BaudRate)
	case c.Backend != "uart" && c.Backend != "tarm":
		return fmt.Errorf("%w: backend %q", morpheus.ErrInvalidParameter, c.Backend)
	case c.QueueSize < 1 || c.FanoutCapacity < 1:
		return fmt.Errorf("%w: queue size %d fan-out capacity %d",
			morpheus.ErrInvalidParameter, c.QueueSize, c.FanoutCapacity)
	case !validLine(c.Line):
		return fmt.Errorf("%w: control line %q", morpheus.ErrInvalidParameter, c.Line)
	case c.Poll.Count < 0 || c.Poll.Interval <= 0:
		return fmt.Errorf("%w: poll count %d interval %s", morpheus.ErrInvalidParameter, c.Poll.Count, c.Poll.Interval)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", morpheus.ErrInvalidParameter, c.LogLevel)
	}
	return nil
}

// Level returns the configured log level
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// LinkConfig returns the link settings carried by c
func (c Config) LinkConfig() *morpheus.LinkConfig {
	lc := morpheus.DefaultLinkConfig()
	lc.PortName = c.Port
	lc.QueueSize = c.QueueSize
	lc.FanoutCapacity = c.FanoutCapacity
	if c.ReadTimeout > 0 {
		lc.ReadErrorBackoff = c.ReadTimeout
	}
	return lc
}

// validLine accepts rts, dtr, none and gpio:<pin>
func validLine(line string) bool {
	switch line {
	case "rts", "dtr", "none":
		return true
	}
	pin, ok := strings.CutPrefix(line, "gpio:")
	return ok && pin != ""
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
