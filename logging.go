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
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	pkgLogger    atomic.Pointer[zerolog.Logger]
	debugEnabled atomic.Bool
)

func init() {
	l := zerolog.New(io.Discard)
	pkgLogger.Store(&l)
}

// SetLogger replaces the logger used by links started afterwards and by the
// package debug helpers. The default logger discards everything.
func SetLogger(l zerolog.Logger) {
	pkgLogger.Store(&l)
}

// Logger returns the package logger
func Logger() zerolog.Logger {
	return *pkgLogger.Load()
}

// SetDebugEnabled turns frame-level debug output on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled reports whether frame-level debug output is on
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	l := Logger()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}
