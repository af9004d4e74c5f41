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
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/ZaparooProject/go-morpheus/config"
	"github.com/ZaparooProject/go-morpheus/detection"
	// Import the serial detector to register it
	_ "github.com/ZaparooProject/go-morpheus/detection/uart"
	"github.com/ZaparooProject/go-morpheus/instructions"
	"github.com/ZaparooProject/go-morpheus/polling"
	"github.com/ZaparooProject/go-morpheus/server"
	"github.com/ZaparooProject/go-morpheus/transport/gpio"
	"github.com/ZaparooProject/go-morpheus/transport/tarm"
	"github.com/ZaparooProject/go-morpheus/transport/uart"
	"github.com/rs/zerolog"
)

const helpText = `Usage: morpheus [OPTIONS]

Options:
  -h                 Print this help
  -l                 List available serial ports
  -p PORT_NAME       Serial port to open
  -b BAUDRATE        Line speed (default 115200)
  -config FILE       TOML configuration file
  -http ADDR         Serve the HTTP adapter on ADDR instead of polling
  -count N           Number of GetVersion requests, 0 polls until interrupted (default 20)
  -interval D        Delay between requests (default 500ms)
  -backend NAME      Serial backend: uart or tarm (default uart)
  -line LINE         Ready line: rts, dtr, none or gpio:<pin> (default rts)
  -debug             Log every frame
`

type flags struct {
	set        map[string]bool
	port       string
	baud       string
	configPath string
	httpAddr   string
	backend    string
	line       string
	interval   time.Duration
	count      int
	list       bool
	help       bool
	debug      bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: map[string]bool{}}

	fs := flag.NewFlagSet("morpheus", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, helpText) }

	fs.BoolVar(&f.help, "h", false, "Print help")
	fs.BoolVar(&f.list, "l", false, "List available serial ports")
	fs.StringVar(&f.port, "p", "", "Serial port to open")
	fs.StringVar(&f.baud, "b", "", "Line speed")
	fs.StringVar(&f.configPath, "config", "", "TOML configuration file")
	fs.StringVar(&f.httpAddr, "http", "", "HTTP listen address")
	fs.IntVar(&f.count, "count", 0, "Number of requests")
	fs.DurationVar(&f.interval, "interval", 0, "Delay between requests")
	fs.StringVar(&f.backend, "backend", "", "Serial backend")
	fs.StringVar(&f.line, "line", "", "Ready line")
	fs.BoolVar(&f.debug, "debug", false, "Log every frame")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// resolveConfig loads the file, if any, and applies the flags given on top
func resolveConfig(f *flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if f.set["p"] {
		cfg.Port = f.port
	}
	if f.set["b"] {
		baud, err := strconv.Atoi(f.baud)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid baud rate format %q: %w", f.baud, err)
		}
		cfg.BaudRate = baud
	}
	if f.set["http"] {
		cfg.HTTPAddr = f.httpAddr
	}
	if f.set["count"] {
		cfg.Poll.Count = f.count
	}
	if f.set["interval"] {
		cfg.Poll.Interval = f.interval
	}
	if f.set["backend"] {
		cfg.Backend = strings.ToLower(f.backend)
	}
	if f.set["line"] {
		cfg.Line = strings.ToLower(f.line)
	}
	if f.debug {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "morpheus").Logger()
}

func listPorts(stdout io.Writer, cfg config.Config) error {
	opts := detection.DefaultOptions()
	opts.IgnorePaths = cfg.Detection.IgnorePaths
	opts.USBOnly = cfg.Detection.USBOnly
	if len(cfg.Detection.Blocklist) > 0 {
		opts.Blocklist = append(opts.Blocklist, cfg.Detection.Blocklist...)
	}

	devices, err := detection.DetectAll(&opts)
	if err != nil {
		return morpheus.NewEnumerationError("list ports", err)
	}

	_, _ = fmt.Fprintf(stdout, "%d available serial ports:\n", len(devices))
	for _, dev := range devices {
		_, _ = fmt.Fprintf(stdout, "\t- %s\n", dev)
	}
	return nil
}

// newTransportFactory opens the configured backend. A gpio ready line
// replaces the modem line, so the uart backend leaves RTS and DTR alone.
func newTransportFactory(cfg config.Config, logger zerolog.Logger) morpheus.TransportFactory {
	return func(path string) (morpheus.Transport, error) {
		switch cfg.Backend {
		case "tarm":
			if cfg.Line == "rts" || cfg.Line == "dtr" {
				logger.Warn().Str("line", cfg.Line).Msg("tarm backend has no modem line control, ready line not driven")
			}
			return tarm.Open(path, cfg.BaudRate, cfg.ReadTimeout)
		default:
			line := uart.LineNone
			if !strings.HasPrefix(cfg.Line, "gpio:") {
				parsed, err := uart.ParseLine(cfg.Line)
				if err != nil {
					return nil, err
				}
				line = parsed
			}
			return uart.Open(path, cfg.BaudRate, uart.WithLine(line), uart.WithReadTimeout(cfg.ReadTimeout))
		}
	}
}

func connect(cfg config.Config, logger zerolog.Logger) (morpheus.Client, *morpheus.Link, error) {
	linkOpts := []morpheus.Option{
		morpheus.WithConfig(cfg.LinkConfig()),
		morpheus.WithLogger(logger),
	}
	if pin, ok := strings.CutPrefix(cfg.Line, "gpio:"); ok {
		line, err := gpio.New(pin, false)
		if err != nil {
			return morpheus.Client{}, nil, err
		}
		linkOpts = append(linkOpts, morpheus.WithControlLine(line))
	}

	return morpheus.Connect(cfg.Port, instructions.Codec{},
		morpheus.WithTransportFactory(newTransportFactory(cfg, logger)),
		morpheus.WithLinkOptions(linkOpts...),
	)
}

func pollVersion(ctx context.Context, stdout io.Writer, client morpheus.Client, cfg config.Config) error {
	pollCfg := polling.DefaultConfig(instructions.GetVersion{})
	pollCfg.Count = cfg.Poll.Count
	pollCfg.Interval = cfg.Poll.Interval
	pollCfg.InitialDelay = cfg.Poll.InitialDelay
	pollCfg.RequestTimeout = cfg.RequestTimeout

	poller, err := polling.NewPoller(client, pollCfg, polling.Callbacks{
		OnFeedback: func(fb morpheus.Feedback) {
			_, _ = fmt.Fprintf(stdout, "%s: %v\n", fb.FeedbackName(), fb)
		},
		OnTimeout: func() {
			_, _ = fmt.Fprintln(stdout, "No feedback")
		},
	})
	if err != nil {
		return err
	}

	err = poller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}
	if f.help {
		_, _ = fmt.Fprint(stdout, helpText)
		return 0
	}

	cfg, err := resolveConfig(f)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := newLogger(stderr, cfg.Level())
	morpheus.SetLogger(logger)
	morpheus.SetDebugEnabled(cfg.Level() <= zerolog.DebugLevel)

	if f.list {
		if err := listPorts(stdout, cfg); err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed listing ports: %s\n", morpheus.Describe(err))
			return 1
		}
		return 0
	}

	if cfg.Port == "" {
		_, _ = fmt.Fprint(stderr, helpText)
		_, _ = fmt.Fprintln(stderr, "Error: Port must be set!")
		return 1
	}

	client, link, err := connect(cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed opening port: %s\n", morpheus.Describe(err))
		return 1
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(client, link,
			server.WithRequestTimeout(cfg.RequestTimeout),
			server.WithLogger(logger))
		err = srv.ListenAndServe(ctx, cfg.HTTPAddr)
	} else {
		err = pollVersion(ctx, stdout, client, cfg)
	}
	if err != nil {
		logger.Error().Err(err).Msg("stopped with error")
	}

	client.Shutdown()
	if waitErr := link.Wait(); waitErr != nil {
		logger.Warn().Err(waitErr).Msg("failed to release port")
	}
	if err != nil {
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
