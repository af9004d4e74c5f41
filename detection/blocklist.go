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

import "strings"

// DefaultBlocklist returns the USB devices that are never reported. It is
// empty: any USB serial bridge may carry the controller firmware.
func DefaultBlocklist() []string {
	return []string{}
}

// Keys that introduce a vendor or product ID in a descriptor
var (
	vidKeys = []string{"VID:", "VID=", "VENDOR="}
	pidKeys = []string{"PID:", "PID=", "PRODUCT="}
)

// FormatVIDPID joins separate vendor and product IDs as reported by the
// port enumerator. It returns "" when either is missing.
func FormatVIDPID(vid, pid string) string {
	vid = strings.ToUpper(strings.TrimSpace(vid))
	pid = strings.ToUpper(strings.TrimSpace(pid))
	if !isHex(vid) || !isHex(pid) {
		return ""
	}
	return vid + ":" + pid
}

// IsBlocked reports whether a device ID matches a blocklist entry. Both
// sides may use any form ParseVIDPID accepts.
func IsBlocked(vidpid string, blocklist []string) bool {
	id := ParseVIDPID(vidpid)
	if id == "" {
		return false
	}
	for _, entry := range blocklist {
		if ParseVIDPID(entry) == id {
			return true
		}
	}
	return false
}

// ParseVIDPID normalizes a USB ID to upper case "VID:PID". It accepts
//
//	1a86:7523
//	VID:1A86 PID:7523
//	vendor=1a86 product=7523
//	USB VID:PID=1A86:7523 SER=0001
//
// and returns "" for anything else.
func ParseVIDPID(descriptor string) string {
	s := strings.ToUpper(strings.TrimSpace(descriptor))

	if _, rest, ok := strings.Cut(s, "VID:PID="); ok {
		s = rest
		if fields := strings.Fields(rest); len(fields) > 0 {
			s = fields[0]
		}
	}
	if vid, pid, ok := strings.Cut(s, ":"); ok && isHex(vid) && isHex(pid) {
		return vid + ":" + pid
	}

	vid, pid := hexAfter(s, vidKeys), hexAfter(s, pidKeys)
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// hexAfter returns the hex digits following the first key found in s
func hexAfter(s string, keys []string) string {
	for _, key := range keys {
		idx := strings.Index(s, key)
		if idx < 0 {
			continue
		}
		rest := s[idx+len(key):]
		end := strings.IndexFunc(rest, func(r rune) bool { return !isHexDigit(r) })
		if end < 0 {
			end = len(rest)
		}
		if end > 0 {
			return rest[:end]
		}
	}
	return ""
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
