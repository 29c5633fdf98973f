package arena

import (
	"time"
	_ "unsafe" // for go:linkname

	"github.com/objsync/arena/internal/opt"
)

// cacheLineSize is the size of a cache line in bytes, used to pad hot atomic
// fields apart so concurrent CAS traffic on adjacent slots doesn't cause
// false sharing.
const cacheLineSize = opt.CacheLineSize_

// noCopy may be embedded in structs which must not be copied after first
// use.
//
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

// delay backs off a contended CAS loop: a few rounds of runtime spinning,
// then short sleeps. Used by the bit-lock's slow path (slowLockUint32).
func delay(spins *int) {
	if trySpin(spins) {
		return
	}
	*spins = 0
	// 500us is derived from Facebook/folly's Sleeper implementation:
	// https://github.com/facebook/folly/blob/main/folly/synchronization/detail/Sleeper.h
	time.Sleep(500 * time.Microsecond)
}

//go:linkname runtime_canSpin sync.runtime_canSpin
func runtime_canSpin(i int) bool

//go:linkname runtime_doSpin sync.runtime_doSpin
func runtime_doSpin()
