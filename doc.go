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

/*
Package morpheus drives a Morpheus device over a serial line.

The device speaks a small framed protocol. Every frame is

	0x55 0xAA LEN PAYLOAD... CSUM

where LEN is the payload length plus four and CSUM is the low byte of LEN
plus every payload byte. The first two payload bytes select the command or
feedback group and identifier.

A Link owns the transport. One goroutine reads, decodes and publishes
feedback while it also writes queued commands, so nothing else touches the
port. Callers talk to the link through a Client handle:

	client, link, err := morpheus.Connect("/dev/ttyACM0", instructions.Codec{},
	    morpheus.WithTransportFactory(func(path string) (morpheus.Transport, error) {
	        return uart.Open(path, uart.DefaultBaudRate)
	    }))
	if err != nil {
	    log.Fatal(morpheus.Describe(err))
	}
	defer link.Wait()
	defer client.Shutdown()

	fb, err := client.Request(ctx, instructions.GetVersion{}, morpheus.DefaultRequestTimeout)
	if err != nil {
	    return err
	}
	fmt.Println(fb)

Feedback Fan-out:

Every Subscription sees each feedback decoded after it was created. A slow
subscriber never stalls the link; it skips its oldest unread values instead
and Dropped reports how many.

Error Handling:

Errors carry an ErrorKind that can be inspected with KindOf, IsFatal and
IsRecoverable. Read and write failures on a running link are logged and
counted in Stats but never stop it.

Thread Safety:

Client values may be copied and used from any goroutine. Shutdown is
idempotent and Link.Wait returns once the port has been released.
*/
package morpheus
