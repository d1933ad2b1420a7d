// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Command graphdump records one of a set of canonical render graph
// scenarios against the in-memory mock backend, compiles and solves
// it, and prints the resulting Pass Groups, transitions and barriers
// for inspection without a real GPU. It optionally ships the same
// summary to a running rgraph/trace grpc sink.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	golangproto "github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph/trace"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("graphdump failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return errors.Wrap(err, "parse flags")
	}

	build, ok := scenarios[cfg.Scenario]
	if !ok {
		names := make([]string, 0, len(scenarios))
		for n := range scenarios {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown --scenario %q: want one of %v", cfg.Scenario, names)
	}

	gpu, err := openGPU(cfg)
	if err != nil {
		return errors.Wrap(err, "open gpu")
	}
	reg := registry.New()

	cf, plan, err := build(gpu, reg)
	if err != nil {
		// A scenario that fails to record/compile/solve is itself
		// valid output: the graph's error kinds are part of what
		// this tool is for inspecting.
		return dumpError(cfg, err)
	}

	summary := trace.Summarize(cf, plan)
	summary["scenario"] = cfg.Scenario
	summary["framesInFlight"] = cfg.FramesInFlight

	if cfg.TraceAddr != "" {
		if err := exportTrace(cfg.TraceAddr, cf, plan); err != nil {
			log.Warn().Err(err).Str("addr", cfg.TraceAddr).Msg("trace export failed")
		}
	}

	out, closeOut, err := cfg.openOut()
	if err != nil {
		return errors.Wrap(err, "open output")
	}
	defer closeOut()

	switch cfg.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "pb":
		st, err := trace.ToStruct(summary)
		if err != nil {
			return errors.Wrap(err, "build protobuf struct")
		}
		// golang/protobuf's Marshal is the legacy-API entry point;
		// it accepts google.protobuf.Struct directly since
		// v2-generated well-known types still satisfy the v1
		// proto.Message interface.
		b, err := golangproto.Marshal(st)
		if err != nil {
			return errors.Wrap(err, "marshal protobuf struct")
		}
		_, err = out.Write(b)
		return err
	default: // yaml
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(summary)
	}
}

func dumpError(cfg *Config, cause error) error {
	out, closeOut, err := cfg.openOut()
	if err != nil {
		return err
	}
	defer closeOut()
	errSummary := map[string]any{"scenario": cfg.Scenario, "error": cause.Error()}
	switch cfg.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(errSummary)
	case "pb":
		st, err := trace.ToStruct(errSummary)
		if err != nil {
			return errors.Wrap(err, "build protobuf struct")
		}
		b, err := golangproto.Marshal(st)
		if err != nil {
			return errors.Wrap(err, "marshal protobuf struct")
		}
		_, err = out.Write(b)
		return err
	default:
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(errSummary)
	}
}

// exportTrace dials addr and forwards the compiled frame to whatever
// rgraph/trace.GraphTraceServer is listening there (for example a
// standalone inspector started with trace.NewSink plus
// trace.RegisterGraphTraceServer, or another process running the
// equivalent of cmd/graphdump --trace-addr itself).
func exportTrace(addr string, cf *compiler.CompiledFrame, plan *barrier.Plan) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return errors.Wrap(err, "dial trace sink")
	}
	defer conn.Close()
	exp := trace.NewExporter(trace.NewGraphTraceClient(conn))
	return exp.Send(ctx, cf, plan)
}
