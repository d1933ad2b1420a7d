// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package trace

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
)

// Exporter sends a compiled frame's summary to a GraphTraceServer
// over grpc. Nothing in the core calls it on its own, a caller wires it in by
// invoking Send after barrier.Solve and before (or concurrently with)
// executor.Execute.
type Exporter struct {
	client GraphTraceClient
}

// NewExporter wraps an already-dialed grpc client connection.
func NewExporter(client GraphTraceClient) *Exporter {
	return &Exporter{client: client}
}

// Send summarizes cf/plan and exports it. Errors are wrapped but
// never fatal to the caller's frame: a trace sink being unreachable
// must not fail rendering, so callers typically log Send's error
// and continue rather than aborting EndFrame.
func (e *Exporter) Send(ctx context.Context, cf *compiler.CompiledFrame, plan *barrier.Plan) error {
	st, err := ToStruct(Summarize(cf, plan))
	if err != nil {
		return errors.Wrap(err, "trace: summarize")
	}
	if _, err := e.client.Export(ctx, st); err != nil {
		return errors.Wrap(err, "trace: export")
	}
	log.Debug().Int("passes", len(cf.Frame.Passes)).Msg("frame exported")
	return nil
}
