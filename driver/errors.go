// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import "github.com/pkg/errors"

const driverPrefix = "driver: "

func newDriverErr(reason string) error { return errors.New(driverPrefix + reason) }
