package arena

import (
	"sync"
	"testing"
)

func TestBitLockUint32(t *testing.T) {
	var val uint32
	const mask = 1 << 31

	var count int
	var wg sync.WaitGroup
	const N = 1000

	wg.Add(N)
	for range N {
		go func() {
			defer wg.Done()
			bitLockUint32(&val, mask)
			count++
			bitUnlockUint32(&val, mask)
		}()
	}
	wg.Wait()

	if count != N {
		t.Errorf("expected count %d, got %d", N, count)
	}
}

func TestTryLockUint32(t *testing.T) {
	var val uint32
	const mask = 1

	if !tryLockUint32(&val, mask) {
		t.Fatal("expected first tryLockUint32 to succeed")
	}
	if tryLockUint32(&val, mask) {
		t.Fatal("expected second tryLockUint32 to fail while held")
	}
	bitUnlockUint32(&val, mask)
	if !tryLockUint32(&val, mask) {
		t.Fatal("expected tryLockUint32 to succeed after unlock")
	}
}
