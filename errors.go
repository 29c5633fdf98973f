package arena

import "errors"

// ErrOutOfCapacity is returned by Insert when every existing bucket is full
// and the arena cannot grow: it has reached its configured growth cap, or
// the Key's bucket-index bits can address no more buckets.
var ErrOutOfCapacity = errors.New("arena: out of capacity")
