package arena

import (
	"sync/atomic"
)

// maxRefcount is the largest value a slot's reference count may reach.
// Cloning a Handle past this point is a programming error (an unbounded
// leak of clones): this implementation panics on overflow rather than
// aborting the process, since a Go library must not unilaterally kill its
// host.
const maxRefcount = ^uint32(0) - 1

// paddedState is a single slot's reference count, isolated onto its own
// cache line. Adjacent slots are claimed and released concurrently by
// unrelated goroutines; without padding their CAS traffic would false-share
// a line, the same false-sharing a striped counter avoids by giving each
// stripe its own line.
type paddedState struct {
	refcount atomic.Uint32
	_        [cacheLineSize - 4]byte
}

// bucket is a fixed-capacity array of slots: a bitmap recording which slots
// are claimed, a parallel refcount per slot, and the values themselves.
// A slot's refcount is 0 while the slot is empty, and holds the number of
// live Handles once populated. The bitmap bit for a slot is set exactly
// while its refcount is nonzero; the two are updated in that order on
// insert (bit, then value, then refcount) and the reverse order on final
// drop (refcount to zero, then value cleared, then bit released), so a
// concurrent reader that sees refcount > 0 is guaranteed the value is
// already written, and a concurrent claimer never reuses a bit while a
// destructor is still running.
type bucket[T any] struct {
	bitmap *bitMap
	states []paddedState
	values []T
}

func newBucket[T any](length int) *bucket[T] {
	return &bucket[T]{
		bitmap: newBitMap(length),
		states: make([]paddedState, length),
		values: make([]T, length),
	}
}

// tryInsert claims a free slot and stores value into it with an initial
// reference count of 1. It fails only when the bucket has no free slots.
func (b *bucket[T]) tryInsert(value T) (int, bool) {
	i, ok := b.bitmap.tryClaim()
	if !ok {
		return 0, false
	}
	b.values[i] = value
	b.states[i].refcount.Store(1)
	return i, true
}

// get returns a copy of the live value at slot i. ok is false if the slot
// is currently empty.
func (b *bucket[T]) get(i int) (T, bool) {
	if b.states[i].refcount.Load() == 0 {
		var zero T
		return zero, false
	}
	return b.values[i], true
}

// tryCloneHandle increments the reference count of slot i, provided the
// slot is currently live. It panics if the count would overflow
// maxRefcount.
func (b *bucket[T]) tryCloneHandle(i int) bool {
	st := &b.states[i].refcount
	for {
		s := st.Load()
		if s == 0 {
			return false
		}
		if s >= maxRefcount {
			panic("arena: refcount overflow")
		}
		if st.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

// dropHandle releases one reference to slot i. When the count reaches
// zero it clears the value and releases the bitmap bit, making the slot
// available for reuse by a future insert; freed reports whether this call
// performed that final teardown.
func (b *bucket[T]) dropHandle(i int) (freed bool) {
	st := &b.states[i].refcount
	for {
		s := st.Load()
		if s == 0 {
			return false
		}
		if s == 1 {
			if st.CompareAndSwap(1, 0) {
				var zero T
				b.values[i] = zero
				b.bitmap.release(i)
				return true
			}
			continue
		}
		if st.CompareAndSwap(s, s-1) {
			return false
		}
	}
}

// removeValue takes slot i's value out and tears the slot down, but only
// if the caller is the sole holder of the slot (refcount is exactly 1). If
// any other Handle also references the slot, removeValue does nothing and
// reports false: the caller's own reference is untouched, so it must still
// be dropped separately.
func (b *bucket[T]) removeValue(i int) (T, bool) {
	st := &b.states[i].refcount
	for {
		s := st.Load()
		if s != 1 {
			var zero T
			return zero, false
		}
		v := b.values[i]
		if st.CompareAndSwap(1, 0) {
			var zero T
			b.values[i] = zero
			b.bitmap.release(i)
			return v, true
		}
	}
}

// strongCount returns the current reference count of slot i, or 0 if the
// slot is empty.
func (b *bucket[T]) strongCount(i int) uint32 {
	return b.states[i].refcount.Load()
}

// isFull reports whether every slot in the bucket is currently claimed.
func (b *bucket[T]) isFull() bool {
	return b.bitmap.isFull()
}

// liveCount returns the number of currently occupied slots.
func (b *bucket[T]) liveCount() int {
	return b.bitmap.popcount()
}
