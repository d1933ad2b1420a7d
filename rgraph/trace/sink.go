// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package trace

import (
	"context"
	"sync"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Sink is a GraphTraceServer that keeps every exported frame in
// memory, for a process inspecting its own render graph (a test, for
// instance) rather than a separate tool dialing in over the network.
type Sink struct {
	mu     sync.Mutex
	frames []*structpb.Struct
}

// NewSink creates an empty Sink.
func NewSink() *Sink { return &Sink{} }

// Export implements GraphTraceServer.
func (s *Sink) Export(_ context.Context, frame *structpb.Struct) (*emptypb.Empty, error) {
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.mu.Unlock()
	return &emptypb.Empty{}, nil
}

// Frames returns every frame received so far, in arrival order.
func (s *Sink) Frames() []*structpb.Struct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*structpb.Struct(nil), s.frames...)
}
