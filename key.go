package arena

// Key identifies a slot inside an Arena. It packs a bucket index and an
// in-bucket slot index into a single 32-bit value: the low slotBits bits
// hold the slot index, the remaining high bits hold the bucket index.
//
// A Key's identity is fixed to a physical slot for as long as any Handle
// keeps that slot alive; there is no generation counter, so a Key must
// never be used again after its last Handle has been dropped.
type Key uint32

// Uint32 returns the raw encoded value of the key, suitable for storage or
// transmission outside the arena.
func (k Key) Uint32() uint32 {
	return uint32(k)
}

// KeyFromUint32 reconstructs a Key from a raw encoded value previously
// obtained from Key.Uint32. The caller is responsible for knowing that the
// value came from an arena with a compatible slot-bit configuration.
func KeyFromUint32(v uint32) Key {
	return Key(v)
}
