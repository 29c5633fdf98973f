package arena

// Handle is a reference-counted, fixed-identity reference to a value stored
// in an Arena. Cloning a Handle increments the slot's reference count;
// dropping one decrements it. The slot's value is only destroyed, and its
// Key only recycled, once every outstanding Handle has been dropped.
//
// A Handle must not be copied by value after construction; call Clone to
// obtain an independent reference instead.
type Handle[T any] struct {
	_      noCopy
	bucket *bucket[T]
	slot   int
	key    Key
}

// Key returns the fixed key this handle refers to. The key remains valid
// for lookups via Arena.Get for as long as this handle, or any clone of it,
// has not been dropped.
func (h *Handle[T]) Key() Key {
	return h.key
}

// Value returns a copy of the value currently stored at this handle's slot.
// It is always safe to call: holding a Handle guarantees the slot's
// reference count is nonzero, so the slot cannot be torn down out from
// under it.
func (h *Handle[T]) Value() T {
	v, ok := h.bucket.get(h.slot)
	if !ok {
		// A live Handle guarantees a live slot; reaching this would mean the
		// reference counting invariant was violated elsewhere.
		panic("arena: handle refers to an empty slot")
	}
	return v
}

// StrongCount returns the number of outstanding Handles that currently
// reference this slot, including this one. It is a snapshot and may be
// stale the instant it is returned if other goroutines hold clones.
func (h *Handle[T]) StrongCount() uint32 {
	return h.bucket.strongCount(h.slot)
}

// Clone returns a new independent Handle to the same slot, incrementing
// its reference count. It panics if the reference count would overflow,
// which only happens after billions of live clones and indicates a leak.
func (h *Handle[T]) Clone() *Handle[T] {
	if !h.bucket.tryCloneHandle(h.slot) {
		panic("arena: Clone called on a handle whose slot was already torn down")
	}
	return &Handle[T]{bucket: h.bucket, slot: h.slot, key: h.key}
}

// Drop releases this handle's reference. Once every clone of a Handle has
// been dropped, the slot's value is destroyed and its Key becomes invalid
// for future lookups; the underlying slot becomes available for reuse by a
// later Insert, which then issues the same Key value for a new, unrelated
// entry.
func (h *Handle[T]) Drop() {
	h.bucket.dropHandle(h.slot)
}
