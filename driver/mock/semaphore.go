// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mock

import "sync/atomic"

type semaphore struct {
	binary bool
	value  atomic.Uint64
}

func newTimeline() *semaphore  { return &semaphore{binary: false} }
func newBinarySem() *semaphore { return &semaphore{binary: true} }

func (s *semaphore) Destroy()     {}
func (s *semaphore) Binary() bool { return s.binary }
