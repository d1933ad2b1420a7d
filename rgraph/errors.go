// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package rgraph

import "github.com/pkg/errors"

const rgraphPrefix = "rgraph: "

func newRGraphErr(reason string) error { return errors.New(rgraphPrefix + reason) }

// ErrInvalidAccess is returned by DeclareAccess/SetColorTargets/
// SetDepthTarget when an access kind is incompatible with its pass's
// queue kind, or a subresource/byte range exceeds the resource.
var ErrInvalidAccess = newRGraphErr("invalid access")

// ErrSwapchainMisuse is returned by EndFrame when a swapchain-imported
// handle declared via BeginFrame does not receive exactly one Present
// access in the frame.
var ErrSwapchainMisuse = newRGraphErr("swapchain handle missing exactly one present access")

// ErrUnknownPass is returned when a PassRef does not name a pass
// recorded in the current frame.
var ErrUnknownPass = newRGraphErr("unknown pass reference")
