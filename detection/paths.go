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

package detection

import (
	"path/filepath"
	"strings"
)

// IsPathIgnored reports whether devicePath is one of ignorePaths. Paths are
// compared cleaned and case folded, and a symlink such as
// /dev/serial/by-id/... matches the device node it points to in either
// direction.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}

	device := normalizedPath(devicePath)
	resolved := normalizedPath(resolve(devicePath))
	for _, p := range ignorePaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		ignored := normalizedPath(p)
		if ignored == device || ignored == resolved {
			return true
		}
		if normalizedPath(resolve(p)) == resolved {
			return true
		}
	}
	return false
}

// resolve follows symlinks, returning path unchanged when it cannot
func resolve(path string) string {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return real
}

// normalizedPath folds case so COM3 and com3 compare equal
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(strings.TrimSpace(path)))
}
