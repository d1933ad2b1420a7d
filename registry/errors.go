// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package registry

import "github.com/pkg/errors"

const regPrefix = "registry: "

func newRegErr(reason string) error { return errors.New(regPrefix + reason) }

// ErrUnknownHandle is returned by Get/LastState/SetLastState when the
// handle's generation does not match the slot's current generation,
// or the slot is not in use.
var ErrUnknownHandle = newRegErr("unknown handle")

// ErrNoCapacity is returned by RegisterImage/RegisterBuffer when the
// registry cannot grow its handle pool further.
var ErrNoCapacity = newRegErr("handle pool exhausted")

// errNotImage is returned by BindView when called on a Buffer handle.
var errNotImage = newRegErr("BindView called on a non-image resource")
