package native

import (
	"errors"
	"fmt"
)

var (
	ErrOpenFailed    = errors.New("engine returned a null handle")
	ErrHandleClosed  = errors.New("handle is closed")
	ErrReleased      = errors.New("buffer already released")
	ErrSymbolMissing = errors.New("symbol not found")
)

// Symbols is the raw foreign surface of an engine. Addresses are opaque to
// callers and owned by the implementation.
type Symbols interface {
	Open(path string) uintptr
	Close(handle uintptr)
	Execute(handle uintptr, sql string, out *uintptr) int32
	Free(ptr uintptr)
	// CopyString copies the NUL-terminated buffer at ptr into Go memory.
	CopyString(ptr uintptr) []byte
}

// Library is the binding table of one engine. It is never modified after
// construction and may be shared by any number of handles.
type Library struct {
	name       string
	freeSymbol string

	open    func(path string) uintptr
	close   func(handle uintptr)
	execute func(handle uintptr, sql string, out *uintptr) int32
	free    func(ptr uintptr)
	copy    func(ptr uintptr) []byte
}

// New builds a Library over an in-process implementation.
func New(name string, s Symbols) *Library {
	return &Library{
		name:       name,
		freeSymbol: "Free",
		open:       s.Open,
		close:      s.Close,
		execute:    s.Execute,
		free:       s.Free,
		copy:       s.CopyString,
	}
}

// Name returns the path or name the library was bound from.
func (lib *Library) Name() string {
	return lib.name
}

// FreeSymbol returns the name of the entry point used to release payloads.
func (lib *Library) FreeSymbol() string {
	return lib.freeSymbol
}

// Open asks the engine for a handle on the named database. A null handle from
// the engine is reported as ErrOpenFailed.
func (lib *Library) Open(path string) (*Handle, error) {
	raw := lib.open(path)
	if raw == 0 {
		return nil, fmt.Errorf("open %q: %w", path, ErrOpenFailed)
	}
	return &Handle{lib: lib, raw: raw}, nil
}
