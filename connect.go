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
	"errors"
	"fmt"
)

// ConnectOption represents a functional option for Connect
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for establishing a link
type connectConfig struct {
	transportFactory TransportFactory
	linkOptions      []Option
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithLinkOptions adds link-level options
func WithLinkOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.linkOptions = append(c.linkOptions, opts...)
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}
	return config, nil
}

// Connect opens the device at path with the configured transport factory and
// starts a link on it. Any failure is fatal to the attempt: the transport, if
// it was opened, is closed again and the error is returned unchanged so its
// kind can be reported.
//
// Example usage:
//
//	client, link, err := morpheus.Connect("/dev/ttyUSB0", instructions.Codec{},
//		morpheus.WithTransportFactory(func(path string) (morpheus.Transport, error) {
//			return uart.Open(path, uart.DefaultBaudRate)
//		}))
func Connect(path string, codec Codec, opts ...ConnectOption) (Client, *Link, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return Client{}, nil, err
	}
	if config.transportFactory == nil {
		return Client{}, nil, errors.New("transport factory not provided")
	}

	transport, err := config.transportFactory(path)
	if err != nil {
		return Client{}, nil, err
	}

	linkOpts := append([]Option{WithPortName(path)}, config.linkOptions...)
	client, link, err := Start(transport, codec, linkOpts...)
	if err != nil {
		_ = transport.Close()
		return Client{}, nil, err
	}
	return client, link, nil
}
