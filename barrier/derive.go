// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package barrier implements the render graph's Barrier Solver: for
// every edge the compiler package produces, it derives the concrete
// driver.Barrier/driver.Transition needed to make the consumer's
// access safe given the producer's - pipeline stages and access masks
// from the access kind, and image layouts from how the resource is
// used on each side.
package barrier

import (
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/rgraph"
)

// shaderSync maps a driver.Stage mask to the driver.Sync stages that
// touch it.
func shaderSync(stages driver.Stage) driver.Sync {
	var s driver.Sync
	if stages&driver.SVertex != 0 {
		s |= driver.SVertexShading
	}
	if stages&driver.SFragment != 0 {
		s |= driver.SFragmentShading
	}
	if stages&driver.SCompute != 0 {
		s |= driver.SComputeShading
	}
	return s
}

// derive maps an access to the pipeline stages it executes in and the
// memory accesses it performs.
func derive(ad rgraph.AccessDescriptor) (driver.Sync, driver.Access) {
	switch ad.Kind {
	case rgraph.ShaderRead:
		return shaderSync(ad.Stages), driver.AShaderRead
	case rgraph.ShaderWrite:
		return shaderSync(ad.Stages), driver.AShaderRead | driver.AShaderWrite
	case rgraph.Storage:
		var a driver.Access
		switch ad.Storage {
		case rgraph.ReadOnly:
			a = driver.AShaderRead
		case rgraph.WriteOnly:
			a = driver.AShaderWrite
		case rgraph.ReadWrite:
			a = driver.AShaderRead | driver.AShaderWrite
		}
		return shaderSync(ad.Stages), a
	case rgraph.ColorTarget:
		var a driver.Access
		if ad.Load == driver.LLoad {
			a |= driver.AColorRead
		}
		if ad.Store == driver.SStore {
			a |= driver.AColorWrite
		}
		return driver.SColorOutput, a
	case rgraph.DepthTarget, rgraph.StencilTarget:
		var a driver.Access
		if ad.Load == driver.LLoad {
			a |= driver.ADSRead
		}
		if ad.Store == driver.SStore {
			a |= driver.ADSWrite
		}
		return driver.SDSOutput, a
	case rgraph.CopySrc:
		return driver.SCopy, driver.ACopyRead
	case rgraph.CopyDst:
		return driver.SCopy, driver.ACopyWrite
	case rgraph.Resolve:
		var a driver.Access
		if ad.Load == driver.LLoad {
			a |= driver.AResolveRead
		}
		if ad.Store == driver.SStore {
			a |= driver.AResolveWrite
		}
		return driver.SResolve, a
	case rgraph.Present:
		return driver.SBottomOfPipe, driver.ANone
	default:
		return driver.SNone, driver.ANone
	}
}

// imageLayout maps an access to the image layout the resource must be
// in while the access executes.
func imageLayout(ad rgraph.AccessDescriptor) driver.Layout {
	switch ad.Kind {
	case rgraph.ColorTarget, rgraph.Resolve:
		return driver.LColorTarget
	case rgraph.DepthTarget, rgraph.StencilTarget:
		if ad.Store == driver.SStore {
			return driver.LDSTarget
		}
		return driver.LDSRead
	case rgraph.ShaderRead:
		return driver.LShaderRead
	case rgraph.Storage:
		return driver.LGeneral
	case rgraph.CopySrc:
		return driver.LCopySrc
	case rgraph.CopyDst:
		return driver.LCopyDst
	case rgraph.Present:
		return driver.LPresent
	default:
		return driver.LUndefined
	}
}
