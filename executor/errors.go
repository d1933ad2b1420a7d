// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package executor

import "github.com/pkg/errors"

const execPrefix = "executor: "

func newExecErr(reason string) error { return errors.New(execPrefix + reason) }

// errNoSurface is returned when a pass declares color/depth targets
// but none of its accesses is a ColorTarget, DepthTarget or
// StencilTarget access to size the rendering scope from.
var errNoSurface = newExecErr("render pass has no color or depth target to size the rendering scope from")

// ErrOutOfMemory, ErrTimeout and ErrDeviceLost are the Executor-time
// error kinds. Execute maps the backend's
// driver.ErrNoDeviceMemory/ErrTimeout/ErrFatal onto these so callers
// can branch with errors.Is regardless of which driver is loaded.
var (
	ErrOutOfMemory = newExecErr("backend reported allocation failure")
	ErrTimeout     = newExecErr("frame wait exceeded the caller-supplied duration")
	ErrDeviceLost  = newExecErr("device lost during submission")
)
