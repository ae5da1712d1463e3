package native

import "sync/atomic"

// Handle is an open engine connection. It is not safe for concurrent use.
type Handle struct {
	lib    *Library
	raw    uintptr
	closed atomic.Bool
}

// Execute submits one statement. The returned Buffer is never nil and must be
// released by the caller once its bytes have been copied.
func (h *Handle) Execute(sql string) (int32, *Buffer, error) {
	if h.closed.Load() {
		return 0, nil, ErrHandleClosed
	}

	var out uintptr
	status := h.lib.execute(h.raw, sql, &out)
	return status, &Buffer{lib: h.lib, ptr: out}, nil
}

// Close releases the engine handle. Only the first call reaches the engine.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrHandleClosed
	}
	h.lib.close(h.raw)
	return nil
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}
