// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package trace exports a compiled render graph frame for external
// inspection. It summarizes a compiler.CompiledFrame/barrier.Plan pair
// as a structured, self-describing value and streams it over a local
// grpc service, so an inspector in another process can watch the
// graph's structure without full command capture.
package trace

import (
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
)

func layoutName(l driver.Layout) string {
	switch l {
	case driver.LUndefined:
		return "Undefined"
	case driver.LCommon:
		return "Common"
	case driver.LColorTarget:
		return "ColorTarget"
	case driver.LDSTarget:
		return "DSTarget"
	case driver.LDSRead:
		return "DSRead"
	case driver.LResolveSrc:
		return "ResolveSrc"
	case driver.LResolveDst:
		return "ResolveDst"
	case driver.LCopySrc:
		return "CopySrc"
	case driver.LCopyDst:
		return "CopyDst"
	case driver.LShaderRead:
		return "ShaderRead"
	case driver.LGeneral:
		return "General"
	case driver.LPresent:
		return "Present"
	default:
		return "Unknown"
	}
}

func groupKindName(k compiler.GroupKind) string {
	if k == compiler.GroupEpilogue {
		return "Epilogue"
	}
	return "Normal"
}

func transitionValue(t driver.Transition) map[string]any {
	return map[string]any{
		"syncBefore":   float64(t.SyncBefore),
		"syncAfter":    float64(t.SyncAfter),
		"accessBefore": float64(t.AccessBefore),
		"accessAfter":  float64(t.AccessAfter),
		"layoutBefore": layoutName(t.LayoutBefore),
		"layoutAfter":  layoutName(t.LayoutAfter),
		"qfamBefore":   float64(t.QFamBefore),
		"qfamAfter":    float64(t.QFamAfter),
	}
}

func barrierValue(b driver.Barrier) map[string]any {
	return map[string]any{
		"syncBefore":   float64(b.SyncBefore),
		"syncAfter":    float64(b.SyncAfter),
		"accessBefore": float64(b.AccessBefore),
		"accessAfter":  float64(b.AccessAfter),
	}
}

// Summarize flattens a CompiledFrame and its solved Plan into a tree
// of plain Go values (maps, slices, strings, float64s, bools) that
// structpb.NewStruct accepts directly. It never touches the backend:
// the result is safe to marshal to JSON/YAML for a CLI dump or ship
// over grpc to an external inspector.
func Summarize(cf *compiler.CompiledFrame, plan *barrier.Plan) map[string]any {
	passes := make([]any, len(cf.Frame.Passes))
	for i, p := range cf.Frame.Passes {
		pb := plan.PerPass[i]
		prologue := make([]any, len(pb.PrologueTransitions))
		for j, t := range pb.PrologueTransitions {
			prologue[j] = transitionValue(t)
		}
		prologueB := make([]any, len(pb.PrologueBarriers))
		for j, b := range pb.PrologueBarriers {
			prologueB[j] = barrierValue(b)
		}
		epilogue := make([]any, len(pb.EpilogueTransitions))
		for j, t := range pb.EpilogueTransitions {
			epilogue[j] = transitionValue(t)
		}
		epilogueB := make([]any, len(pb.EpilogueBarriers))
		for j, b := range pb.EpilogueBarriers {
			epilogueB[j] = barrierValue(b)
		}
		passes[i] = map[string]any{
			"name":                p.Name,
			"queue":               cf.QueueOf[i].String(),
			"prologueTransitions": prologue,
			"prologueBarriers":    prologueB,
			"epilogueTransitions": epilogue,
			"epilogueBarriers":    epilogueB,
			"acquireWaits":        float64(len(pb.PrologueAcquire)),
		}
	}

	groups := make([]any, len(cf.Groups))
	for i, g := range cf.Groups {
		indices := make([]any, len(g.PassIndices))
		for j, pi := range g.PassIndices {
			indices[j] = cf.Frame.Passes[pi].Name
		}
		groups[i] = map[string]any{
			"queue":   g.Queue.String(),
			"kind":    groupKindName(g.Kind),
			"passes":  indices,
			"trailer": i == cf.TrailingEpilogueIndex,
		}
	}

	trailing := make([]any, len(plan.TrailingEpilogueTransitions))
	for i, t := range plan.TrailingEpilogueTransitions {
		trailing[i] = transitionValue(t)
	}

	presents := make([]any, len(plan.Presents))
	for i, h := range plan.Presents {
		presents[i] = float64(h)
	}

	alias := make(map[string]any, len(cf.Alias))
	for h, slot := range cf.Alias {
		alias[handleKey(h)] = float64(slot)
	}

	return map[string]any{
		"passes":                      passes,
		"groups":                      groups,
		"trailingEpilogueTransitions": trailing,
		"presents":                    presents,
		"aliasPlan":                   alias,
	}
}

func handleKey(h registry.Handle) string {
	return strconv.FormatUint(uint64(h), 16)
}

// ToStruct converts a Summarize result into a structpb.Struct, the
// well-known protobuf value this package ships over grpc and that the
// graphdump CLI's proto-aware callers can marshal with
// google.golang.org/protobuf/encoding/prototext or golang/protobuf's
// legacy proto.Marshal.
func ToStruct(summary map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(summary)
}
