// Package arena implements a concurrent, fixed-identity object store keyed
// by 32-bit integers. Values are inserted once and referenced afterward
// through reference-counted Handles; a value's Key never changes for as
// long as any Handle to it is alive, and the underlying storage grows in
// amortized-O(1) exponential steps as it fills up.
//
// The arena is organized as an append-only vector of fixed-size buckets.
// Each bucket owns a dense bitmap allocator that hands out free slots
// without a lock on the fast path; growing the bucket vector itself is
// coordinated by a single bit-lock so only one goroutine allocates a new
// bucket at a time, while goroutines that lose that race wait on a growth
// epoch instead of spinning.
package arena

import (
	"sync/atomic"
)

// Arena is a concurrent, growable store of values of type T, addressed by
// Key. It is safe for concurrent use by multiple goroutines.
type Arena[T any] struct {
	_ noCopy

	table atomic.Pointer[[]*bucket[T]]

	// epoch guards the slow path that appends new buckets to table, allowing
	// only one goroutine to grow it at a time and parking the rest.
	epoch growthEpoch

	// insertCursor spreads inserts across buckets instead of always probing
	// from index zero, reducing contention on any single bucket's bitmap.
	insertCursor uint32

	slotBits  uint
	slotLen   int
	slotMask  uint32
	growthCap int
}

// New constructs an empty Arena. By default it starts with one bucket of 64
// slots and grows without bound; see WithBitArrayLen, WithInitialBuckets,
// and WithGrowthCap to change that.
func New[T any](opts ...Option) *Arena[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Arena[T]{
		slotBits:  cfg.slotBits,
		slotLen:   1 << cfg.slotBits,
		slotMask:  uint32(1)<<cfg.slotBits - 1,
		growthCap: cfg.growthCap,
	}

	buckets := make([]*bucket[T], cfg.initialBuckets)
	for i := range buckets {
		buckets[i] = newBucket[T](a.slotLen)
	}
	a.table.Store(&buckets)
	return a
}

func (a *Arena[T]) compose(bucketIdx, slotIdx int) Key {
	return Key(uint32(bucketIdx)<<a.slotBits | uint32(slotIdx))
}

func (a *Arena[T]) decompose(k Key) (bucketIdx, slotIdx int) {
	v := uint32(k)
	return int(v >> a.slotBits), int(v & a.slotMask)
}

// Insert stores value in the arena and returns a Handle owning the first
// reference to it. It returns ErrOutOfCapacity when every bucket is full
// and the arena cannot grow further: either the configured growth cap is
// reached or the Key's bucket-index bits can address no more buckets.
func (a *Arena[T]) Insert(value T) (*Handle[T], error) {
	for {
		buckets := *a.table.Load()

		start := int(atomic.AddUint32(&a.insertCursor, 1)) % len(buckets)
		for i := 0; i < len(buckets); i++ {
			idx := (start + i) % len(buckets)
			b := buckets[idx]
			if slot, ok := b.tryInsert(value); ok {
				return &Handle[T]{bucket: b, slot: slot, key: a.compose(idx, slot)}, nil
			}
		}

		if err := a.grow(len(buckets)); err != nil {
			return nil, err
		}
	}
}

// Get looks up key and, if its slot is still live, returns a new Handle
// referencing it (incrementing the slot's reference count). ok is false if
// key does not currently resolve to a live slot.
func (a *Arena[T]) Get(key Key) (*Handle[T], bool) {
	buckets := *a.table.Load()
	bucketIdx, slotIdx := a.decompose(key)
	if bucketIdx < 0 || bucketIdx >= len(buckets) {
		return nil, false
	}
	b := buckets[bucketIdx]
	if !b.tryCloneHandle(slotIdx) {
		return nil, false
	}
	return &Handle[T]{bucket: b, slot: slotIdx, key: key}, true
}

// Remove takes the value out of key's slot and returns it, but only if the
// caller is the sole holder of that slot: internally it is a compare-and-
// swap from a reference count of exactly 1 to EMPTY. If any other Handle
// also references the slot, or the slot is already empty, Remove leaves
// the slot untouched and returns ok=false; the caller's own Handle, if it
// has one, is not affected and must still be dropped separately.
func (a *Arena[T]) Remove(key Key) (T, bool) {
	buckets := *a.table.Load()
	bucketIdx, slotIdx := a.decompose(key)
	if bucketIdx < 0 || bucketIdx >= len(buckets) {
		var zero T
		return zero, false
	}
	return buckets[bucketIdx].removeValue(slotIdx)
}

// Len returns an approximate count of live entries, computed by summing
// each bucket's bitmap popcount. Under concurrent modification this is a
// snapshot that may be stale by the time it is returned.
func (a *Arena[T]) Len() int {
	buckets := *a.table.Load()
	n := 0
	for _, b := range buckets {
		n += b.liveCount()
	}
	return n
}

// Cap returns the total number of slots currently allocated across all
// buckets, live or free.
func (a *Arena[T]) Cap() int {
	buckets := *a.table.Load()
	return len(buckets) * a.slotLen
}

// grow doubles the number of buckets in table, unless another goroutine has
// already grown it since observedLen was read. Only one goroutine performs
// the actual allocation at a time, via a.epoch; the rest wait for that
// round to finish and then re-check the table themselves. Doubling keeps
// the amortized cost of growth O(1) per insert, the same argument that
// justifies doubling in a standard growable vector.
func (a *Arena[T]) grow(observedLen int) error {
	// Read the round before contending for it, so a loser waits for the
	// round in flight rather than one after it that may never start.
	round := a.epoch.currentRound()
	if !a.epoch.tryBeginRound() {
		a.epoch.waitForNextRound(round)
		return nil
	}
	// Every path out of the critical section finishes the round, including
	// ErrOutOfCapacity: goroutines that lost the round race are parked in
	// waitForNextRound and must be woken regardless of outcome, or they
	// hang forever waiting for a round that already decided not to grow.
	defer a.epoch.finishRound()

	buckets := *a.table.Load()
	if len(buckets) != observedLen {
		// someone grew while we were acquiring the lock
		return nil
	}

	maxBuckets := int(uint(1) << (32 - a.slotBits))
	newCount := len(buckets) * 2
	if newCount == 0 {
		newCount = 1
	}
	if newCount > maxBuckets {
		newCount = maxBuckets
	}
	if a.growthCap > 0 && newCount > a.growthCap {
		newCount = a.growthCap
	}
	if newCount <= len(buckets) {
		return ErrOutOfCapacity
	}

	next := make([]*bucket[T], newCount)
	copy(next, buckets)
	for i := len(buckets); i < newCount; i++ {
		next[i] = newBucket[T](a.slotLen)
	}

	a.table.Store(&next)
	return nil
}
