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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "morpheus.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load("ex.config.toml")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, "uart", cfg.Backend)
	assert.Equal(t, "dtr", cfg.Line)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, 50*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 57600, cfg.BaudRate)
	assert.Equal(t, 32, cfg.QueueSize)
	assert.Equal(t, morpheus.DefaultFanoutCapacity, cfg.FanoutCapacity, "undefined keys keep defaults")

	assert.Equal(t, 0, cfg.Poll.Count)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, 100*time.Millisecond, cfg.Poll.InitialDelay)

	assert.Equal(t, []string{"/dev/ttyS0"}, cfg.Detection.IgnorePaths)
	assert.Equal(t, []string{"1A86:7523"}, cfg.Detection.Blocklist)
	assert.True(t, cfg.Detection.USBOnly)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "bad syntax", body: "port = ", wantErr: "load config"},
		{name: "bad duration", body: `read_timeout = "soon"`, wantErr: "parse read_timeout"},
		{name: "bad nested duration", body: "[poll]\ninterval = \"x\"", wantErr: "parse poll.interval"},
		{name: "unknown key", body: `speed = 9600`, wantErr: "unknown key"},
		{name: "bad backend", body: `backend = "usb"`, wantErr: "backend"},
		{name: "bad line", body: `line = "gpio:"`, wantErr: "control line"},
		{name: "bad level", body: `log_level = "loud"`, wantErr: "log level"},
		{name: "bad baud", body: `baud_rate = 0`, wantErr: "baud rate"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestConfig_LinkConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Port = "COM3"
	cfg.QueueSize = 4
	cfg.FanoutCapacity = 8
	cfg.ReadTimeout = 20 * time.Millisecond

	lc := cfg.LinkConfig()
	assert.Equal(t, "COM3", lc.PortName)
	assert.Equal(t, 4, lc.QueueSize)
	assert.Equal(t, 8, lc.FanoutCapacity)
	assert.Equal(t, 20*time.Millisecond, lc.ReadErrorBackoff)
	assert.Equal(t, morpheus.DefaultReadBufferSize, lc.ReadBufferSize)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Line = "gpio:GPIO17"
	require.NoError(t, cfg.Validate())

	cfg.Poll.Count = -1
	require.ErrorIs(t, cfg.Validate(), morpheus.ErrInvalidParameter)
}
