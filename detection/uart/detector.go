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

// Package uart registers a detector for serial ports. Import it for its side
// effect before calling detection.DetectAll.
package uart

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-morpheus/detection"
	"go.bug.st/serial/enumerator"
)

// detector implements the Detector interface for serial ports
type detector struct {
	list func() ([]*enumerator.PortDetails, error)
}

// New creates a new serial port detector
func New() detection.Detector {
	return &detector{list: enumerator.GetDetailedPortsList}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports, skipping blocklisted USB devices
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate ports: %w", err)
	}

	devices := make([]detection.DeviceInfo, 0, len(ports))
	for _, port := range ports {
		if port == nil || port.Name == "" {
			continue
		}
		if opts.USBOnly && !port.IsUSB {
			continue
		}

		info := detection.DeviceInfo{
			Transport: "uart",
			Path:      port.Name,
			Name:      port.Name,
			Metadata:  map[string]string{},
		}
		if port.IsUSB {
			vidpid := detection.FormatVIDPID(port.VID, port.PID)
			if detection.IsBlocked(vidpid, opts.Blocklist) {
				continue
			}
			info.Metadata["vidpid"] = vidpid
			info.Metadata["serial"] = port.SerialNumber
			if port.Product != "" {
				info.Name = port.Product
			}
		}
		devices = append(devices, info)
	}
	return devices, nil
}
