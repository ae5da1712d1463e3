package engine

import (
	"sync"
)

// Op identifies an arena operation reported to an observer.
type Op int

const (
	OpAlloc Op = iota
	OpCopy
	OpFree
	OpInvalidFree
	OpInvalidCopy
)

func (op Op) String() string {
	switch op {
	case OpAlloc:
		return "alloc"
	case OpCopy:
		return "copy"
	case OpFree:
		return "free"
	case OpInvalidFree:
		return "invalid-free"
	case OpInvalidCopy:
		return "invalid-copy"
	default:
		return "unknown"
	}
}

// Event describes one arena operation.
type Event struct {
	Op   Op
	Addr uintptr
	Size int
}

// Stats counts arena traffic since creation.
type Stats struct {
	Allocs        int
	Frees         int
	Copies        int
	InvalidFrees  int
	InvalidCopies int
	Outstanding   int
}

const (
	arenaBase  = 0x1000
	arenaAlign = 0x10
)

// Arena stands in for the engine's C allocator. Blocks are addressed by
// synthetic, never reused addresses, so a stale or foreign pointer is always
// detected instead of aliasing a live block.
type Arena struct {
	mu      sync.Mutex
	next    uintptr
	blocks  map[uintptr][]byte
	stats   Stats
	observe func(Event)
}

// NewArena returns an empty arena. observe, if not nil, is called for every
// operation while the arena lock is held.
func NewArena(observe func(Event)) *Arena {
	return &Arena{
		next:    arenaBase,
		blocks:  make(map[uintptr][]byte),
		observe: observe,
	}
}

// Alloc stores a copy of data and returns its address.
func (a *Arena) Alloc(data []byte) uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.next
	a.next += uintptr((len(data)/arenaAlign + 1) * arenaAlign)
	a.blocks[addr] = append(make([]byte, 0, len(data)), data...)
	a.stats.Allocs++
	a.emit(Event{Op: OpAlloc, Addr: addr, Size: len(data)})
	return addr
}

// Copy returns a copy of the live block at addr, or nil if there is none.
func (a *Arena) Copy(addr uintptr) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	block, ok := a.blocks[addr]
	if !ok {
		a.stats.InvalidCopies++
		a.emit(Event{Op: OpInvalidCopy, Addr: addr})
		return nil
	}
	a.stats.Copies++
	a.emit(Event{Op: OpCopy, Addr: addr, Size: len(block)})
	return append(make([]byte, 0, len(block)), block...)
}

// Free releases the block at addr. It reports false for a pointer the arena
// does not own, including one that was already freed.
func (a *Arena) Free(addr uintptr) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	block, ok := a.blocks[addr]
	if !ok {
		a.stats.InvalidFrees++
		a.emit(Event{Op: OpInvalidFree, Addr: addr})
		return false
	}
	delete(a.blocks, addr)
	a.stats.Frees++
	a.emit(Event{Op: OpFree, Addr: addr, Size: len(block)})
	return true
}

// Owns reports whether addr is a live block.
func (a *Arena) Owns(addr uintptr) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.blocks[addr]
	return ok
}

// Outstanding returns the number of live blocks.
func (a *Arena) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Outstanding = len(a.blocks)
	return s
}

func (a *Arena) emit(e Event) {
	if a.observe != nil {
		a.observe(e)
	}
}
