package arena

import (
	"sync/atomic"

	"github.com/objsync/arena/internal/opt"
)

// latch is a synchronization primitive for "wait for completion" (one-way
// door), used by the concurrency tests to release a batch of goroutines at
// the same instant instead of racing them against goroutine startup.
// Once Open() is called, all current and future Wait() calls return
// immediately.
type latch struct {
	_ noCopy
	// state 32-bit:
	//   bit 0: done flag (1 = done)
	//   bits 1-31: waiter count
	state atomic.Uint32
	sema  opt.Sema
}

const (
	latchDoneFlag  = 1
	latchOneWaiter = 2 // 1 << 1
)

// Open opens the door.
// It wakes up all currently blocked waiters.
// Any future calls to Wait() will return immediately.
// Open() is idempotent (can be called multiple times).
func (e *latch) Open() {
	for {
		s := e.state.Load()
		if s&latchDoneFlag != 0 {
			return
		}
		if e.state.CompareAndSwap(s, s|latchDoneFlag) {
			waiters := s >> 1
			for range waiters {
				e.sema.Release()
			}
			return
		}
	}
}

// Wait blocks until Open is called.
// If Open has already been called, it returns immediately.
func (e *latch) Wait() {
	for {
		s := e.state.Load()
		if s&latchDoneFlag != 0 {
			return
		}

		if e.state.CompareAndSwap(s, s+latchOneWaiter) {
			e.sema.Acquire()
			return
		}
	}
}
