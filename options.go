package arena

// config holds the tunables resolved from a caller's Option list before an
// Arena is constructed. It is kept unexported, behind functional options,
// so new fields can be added without breaking callers.
type config struct {
	slotBits       uint
	initialBuckets int
	growthCap      int
}

// Option configures an Arena at construction time.
type Option func(*config)

// defaultConfig returns the configuration used when New is called with no
// options: 64 slots per bucket, one bucket allocated up front, and no cap
// on the number of buckets the arena may grow to.
func defaultConfig() config {
	return config{
		slotBits:       6, // 1<<6 = 64 slots per bucket
		initialBuckets: 1,
		growthCap:      0, // unbounded
	}
}

// WithBitArrayLen sets the number of bits used to index a slot within a
// bucket. A bucket holds 1<<bits slots. bits must be between 1 and 32
// inclusive. At bits=32 the bucket-index field is 0 bits wide, so the
// arena is limited to exactly one bucket of 1<<32 slots; both compose and
// decompose still work at that extreme because Go defines a uint32 shift
// by 32 as yielding 0, which is exactly the "no bucket-index bits" case.
func WithBitArrayLen(bits uint) Option {
	return func(c *config) {
		if bits < 1 || bits > 32 {
			panic("arena: WithBitArrayLen requires 1 <= bits <= 32")
		}
		c.slotBits = bits
	}
}

// WithInitialBuckets sets the number of buckets allocated when the arena is
// constructed, letting a caller avoid the first few growth rounds when the
// working-set size is known ahead of time.
func WithInitialBuckets(n int) Option {
	return func(c *config) {
		if n < 1 {
			panic("arena: WithInitialBuckets requires n >= 1")
		}
		c.initialBuckets = n
	}
}

// WithGrowthCap bounds the number of buckets the arena will ever allocate.
// Once every bucket up to the cap is full, Insert returns ErrOutOfCapacity
// instead of growing further. A cap of 0 (the default) means unbounded,
// limited only by the range a Key's bucket-index bits can address.
func WithGrowthCap(n int) Option {
	return func(c *config) {
		if n < 0 {
			panic("arena: WithGrowthCap requires n >= 0")
		}
		c.growthCap = n
	}
}
