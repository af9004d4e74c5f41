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

// Package detection enumerates the devices a morpheus link can be opened on.
// Transport specific detectors register themselves on import.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no detector reports a device
	ErrNoDevicesFound = errors.New("no devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run on this OS
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// DeviceInfo describes a detected device
type DeviceInfo struct {
	Metadata  map[string]string
	Transport string
	Path      string
	Name      string
}

// String returns the "transport: path" form used in port listings
func (d DeviceInfo) String() string {
	return d.Transport + ": " + d.Path
}

// Options configures detection
type Options struct {
	// IgnorePaths lists device paths that are never reported
	IgnorePaths []string
	// Blocklist lists USB VID:PID pairs that are never reported
	Blocklist []string
	// Timeout bounds a whole detection run
	Timeout time.Duration
	// USBOnly skips ports that are not backed by a USB device
	USBOnly bool
}

// DefaultOptions returns default detection options
func DefaultOptions() Options {
	return Options{
		Blocklist: DefaultBlocklist(),
		Timeout:   5 * time.Second,
	}
}

// Detector finds devices on one kind of transport
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	detectors  = make(map[string]Detector)
)

// RegisterDetector makes a detector available to DetectAll
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	detectors[d.Transport()] = d
}

func registered() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	list := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Transport() < list[j].Transport()
	})
	return list
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector and merges the results,
// dropping ignored paths. Detector failures are only returned when no
// detector produced a device.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range registered() {
		found, err := d.Detect(ctx, opts)
		if err != nil {
			if !errors.Is(err, ErrUnsupportedPlatform) {
				errs = append(errs, fmt.Errorf("%s detection failed: %w", d.Transport(), err))
			}
			continue
		}
		for _, dev := range found {
			if IsPathIgnored(dev.Path, opts.IgnorePaths) {
				continue
			}
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return devices, nil
}

// Find returns the detected device with the given path
func Find(ctx context.Context, path string, opts *Options) (DeviceInfo, error) {
	devices, err := DetectAllContext(ctx, opts)
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, dev := range devices {
		if dev.Path == path {
			return dev, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: %s", ErrNoDevicesFound, path)
}
