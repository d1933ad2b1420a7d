// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package ctxt

import (
	_ "github.com/gviegas/rhigraph/driver/mock"
)

func init() {
	if err := loadDriver("mock"); err != nil {
		// Try all drivers.
		if err = loadDriver(""); err != nil {
			panic(err)
		}
	}
}
