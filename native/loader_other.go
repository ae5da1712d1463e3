//go:build !(darwin || freebsd || linux)

package native

import (
	"fmt"
	"runtime"
)

// Load is not available on this platform; use New with an in-process engine.
func Load(path string) (*Library, error) {
	return nil, fmt.Errorf("failed to load %s: shared libraries are not supported on %s", path, runtime.GOOS)
}
