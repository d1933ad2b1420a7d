// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package compiler

import "github.com/pkg/errors"

const compPrefix = "compiler: "

func newCompErr(reason string) error { return errors.New(compPrefix + reason) }

// ErrCyclicDependency is returned by Compile when the resource-use
// chain across passes implies a cycle.
var ErrCyclicDependency = newCompErr("cyclic pass dependency")
