package arena

import (
	"sync"
	"sync/atomic"

	"github.com/objsync/arena/internal/opt"
)

// growLockBit is the single bit growthEpoch uses to serialize growers.
const growLockBit uint32 = 1

// growthEpoch coordinates growth of the arena's bucket vector: it lets at
// most one goroutine at a time append new buckets, and gives every other
// goroutine that arrives mid-round a way to wait for that round to land
// instead of retrying the bucket vector in a spin loop.
//
// The lock bit and the round counter are folded into one type because they
// are always used together in this arena: a goroutine that fails
// tryBeginRound has no use for the lock bit on its own, it wants to block
// until whichever round is in flight finishes, which means waiting on the
// counter under the same struct.
type growthEpoch struct {
	_     noCopy
	lock  uint32
	round atomic.Uint64
	mu    sync.Mutex
	head  *epochWaiter
	tail  *epochWaiter
}

type epochWaiter struct {
	target uint32
	sema   opt.Sema
	// next is protected by growthEpoch.mu
	next *epochWaiter
}

// tryBeginRound attempts to become the sole grower of the bucket vector for
// the next round. Callers that fail must call waitForNextRound rather than
// growing themselves.
func (e *growthEpoch) tryBeginRound() bool {
	return tryLockUint32(&e.lock, growLockBit)
}

// currentRound returns the number of growth rounds completed so far.
func (e *growthEpoch) currentRound() uint32 {
	return uint32(e.round.Load())
}

// finishRound ends the caller's growth round: it advances the round
// counter, wakes every goroutine parked in waitForNextRound whose target
// round has now landed, and releases the lock bit for the next grower.
//
// It must run even when the round decided not to grow the vector (e.g. the
// growth cap was reached), since goroutines parked in waitForNextRound are
// waiting on the round counter regardless of whether growth happened, and
// would otherwise block forever.
func (e *growthEpoch) finishRound() {
	newVal := uint32(e.round.Add(1))

	e.mu.Lock()

	var prev *epochWaiter
	curr := e.head

	for curr != nil {
		if curr.target <= newVal {
			curr.sema.Release()

			if prev == nil {
				e.head = curr.next
			} else {
				prev.next = curr.next
			}
			if curr == e.tail {
				e.tail = prev
			}

			curr = curr.next
		} else {
			prev = curr
			curr = curr.next
		}
	}

	e.mu.Unlock()

	bitUnlockUint32(&e.lock, growLockBit)
}

// waitForNextRound blocks until a growth round beyond observed has
// completed. Callers pass the round they last saw finish (or are about to
// wait past); when it returns, the caller should re-observe the bucket
// vector and retry its operation.
func (e *growthEpoch) waitForNextRound(observed uint32) {
	target := observed + 1
	if e.currentRound() >= target {
		return
	}

	e.mu.Lock()
	if e.currentRound() >= target {
		e.mu.Unlock()
		return
	}

	w := &epochWaiter{target: target}
	if e.tail == nil {
		e.head = w
		e.tail = w
	} else {
		e.tail.next = w
		e.tail = w
	}
	e.mu.Unlock()

	w.sema.Acquire()
}
