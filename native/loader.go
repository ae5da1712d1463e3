//go:build darwin || freebsd || linux

package native

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Load opens the shared library at path and binds the mydb entry points. The
// library stays mapped for the life of the process.
func Load(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	// RegisterLibFunc panics on a missing symbol, so check first.
	for _, name := range []string{"mydb_open", "mydb_close", "mydb_execute_json"} {
		if _, err := purego.Dlsym(handle, name); err != nil {
			return nil, fmt.Errorf("%s in %s: %w", name, path, ErrSymbolMissing)
		}
	}

	freeSymbol := "mydb_free"
	if _, err := purego.Dlsym(handle, freeSymbol); err != nil {
		// Resolved through the library handle, so this is the free of the C
		// runtime the library itself links against.
		freeSymbol = "free"
		if _, err := purego.Dlsym(handle, freeSymbol); err != nil {
			return nil, fmt.Errorf("no deallocator in %s: %w", path, ErrSymbolMissing)
		}
	}

	var (
		cOpen    func(filename string) uintptr
		cClose   func(h uintptr)
		cExecute func(h uintptr, sql string, out unsafe.Pointer) int32
		cFree    func(p uintptr)
	)
	purego.RegisterLibFunc(&cOpen, handle, "mydb_open")
	purego.RegisterLibFunc(&cClose, handle, "mydb_close")
	purego.RegisterLibFunc(&cExecute, handle, "mydb_execute_json")
	purego.RegisterLibFunc(&cFree, handle, freeSymbol)

	return &Library{
		name:       path,
		freeSymbol: freeSymbol,
		open:       cOpen,
		close:      cClose,
		execute: func(h uintptr, sql string, out *uintptr) int32 {
			return cExecute(h, sql, unsafe.Pointer(out))
		},
		free: cFree,
		copy: copyCString,
	}, nil
}

func copyCString(ptr uintptr) []byte {
	p := unsafe.Pointer(ptr)
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	buf := make([]byte, n)
	copy(buf, unsafe.Slice((*byte)(p), n))
	return buf
}
