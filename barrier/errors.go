// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package barrier

import "github.com/pkg/errors"

const barrierPrefix = "barrier: "

func newBarrierErr(reason string) error { return errors.New(barrierPrefix + reason) }

// errLayoutMismatch is an internal consistency check: two links
// merged into the same slot disagreed on the resulting layout, a
// solver bug rather than something a caller can recover from.
var errLayoutMismatch = newBarrierErr("collapsed barriers disagree on layout")
