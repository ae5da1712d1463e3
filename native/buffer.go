package native

import "sync/atomic"

// Buffer owns a payload allocated by the engine. The pointer stays inside
// this package; callers only ever see copies of the bytes.
type Buffer struct {
	lib      *Library
	ptr      uintptr
	released atomic.Bool
}

// Null reports whether the engine returned no payload.
func (b *Buffer) Null() bool {
	return b == nil || b.ptr == 0
}

// Bytes returns a Go-owned copy of the payload, without the NUL terminator.
// A null payload yields nil.
func (b *Buffer) Bytes() ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	if b.released.Load() {
		return nil, ErrReleased
	}
	if b.ptr == 0 {
		return nil, nil
	}
	return b.lib.copy(b.ptr), nil
}

// Release hands the payload back to the allocator that produced it. It
// reports whether this call freed memory: repeated calls and null payloads
// return false and never reach the engine.
func (b *Buffer) Release() bool {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return false
	}
	if b.ptr == 0 {
		return false
	}
	b.lib.free(b.ptr)
	return true
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b != nil && b.released.Load()
}
