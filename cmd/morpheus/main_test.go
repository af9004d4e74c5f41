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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/go-morpheus/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	code, stdout, _ := runCLI("-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "-p PORT_NAME")
	assert.Contains(t, stdout, "-b BAUDRATE")
}

func TestRun_MissingPort(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI()
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage: morpheus")
	assert.Contains(t, stderr, "Error: Port must be set!")
}

func TestRun_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "baud not a number", args: []string{"-p", "/dev/ttyUSB0", "-b", "fast"}, wantErr: "invalid baud rate format"},
		{name: "unknown backend", args: []string{"-p", "/dev/ttyUSB0", "-backend", "usb"}, wantErr: "backend"},
		{name: "unknown line", args: []string{"-p", "/dev/ttyUSB0", "-line", "cts"}, wantErr: "control line"},
		{name: "missing config", args: []string{"-config", "/nonexistent/morpheus.toml"}, wantErr: "load config"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, _, stderr := runCLI(tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, "Error: ")
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestRun_OpenFailure(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI("-p", "/dev/ttyMORPHEUS-MISSING")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Failed opening port: ")
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "morpheus.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \"/dev/ttyS1\"\nbaud_rate = 9600\n"), 0o600))

	f, err := parseFlags([]string{"-config", path, "-b", "57600", "-count", "3", "-interval", "1s", "-debug"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := resolveConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Port)
	assert.Equal(t, 57600, cfg.BaudRate)
	assert.Equal(t, 3, cfg.Poll.Count)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestResolveConfig_Defaults(t *testing.T) {
	t.Parallel()

	f, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := resolveConfig(f)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
