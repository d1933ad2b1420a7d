// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config holds graphdump's flag-driven options.
type Config struct {
	Scenario       string
	Format         string
	Out            string
	FramesInFlight int
	QueueFallback  bool
	TraceAddr      string
}

func parseConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("graphdump", pflag.ContinueOnError)
	cfg := &Config{}
	fs.StringVar(&cfg.Scenario, "scenario", "s1", "scenario to compile: s1..s6")
	fs.StringVar(&cfg.Format, "format", "yaml", "output format: yaml, json, or pb (binary protobuf google.protobuf.Struct)")
	fs.StringVar(&cfg.Out, "out", "-", "output file path, or - for stdout")
	fs.IntVar(&cfg.FramesInFlight, "frames-in-flight", 3, "frame-overlap buffer depth (informational)")
	fs.BoolVar(&cfg.QueueFallback, "queue-fallback", false, "simulate a device with no dedicated Compute/Transfer queue families")
	fs.StringVar(&cfg.TraceAddr, "trace-addr", "", "if set, also export the compiled frame to a running rgraph/trace grpc server at this address")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch cfg.Format {
	case "yaml", "json", "pb":
	default:
		return nil, fmt.Errorf("unknown --format %q: want yaml, json or pb", cfg.Format)
	}
	return cfg, nil
}

func (c *Config) openOut() (*os.File, func(), error) {
	if c.Out == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
