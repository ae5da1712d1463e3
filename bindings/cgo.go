// Command bindings builds the embedded engine as a C shared library that
// exports the libmydb ABI:
//
//	go build -buildmode=c-shared -o libmydb.so ./bindings
//
// MYDB_DRIVER selects the engine driver and MYDB_LOG_LEVEL enables logging
// to stderr.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/nickyhof/mydb/engine"
	"github.com/nickyhof/mydb/logging"
)

// Open engines keyed by the address of their C-allocated handle token. The
// token gives C callers a real, unique pointer without handing Go memory
// across the boundary.
var (
	mu      sync.Mutex
	engines = make(map[uintptr]*engine.Engine)

	logOnce sync.Once
	log     = zap.NewNop()
)

func logger() *zap.Logger {
	logOnce.Do(func() {
		level := os.Getenv("MYDB_LOG_LEVEL")
		if level == "" {
			return
		}
		if l, err := logging.New(logging.Options{Level: level, Development: true}); err == nil {
			log = l
		}
	})
	return log
}

//export mydb_open
func mydb_open(filename *C.char) unsafe.Pointer {
	if filename == nil {
		return nil
	}
	path := C.GoString(filename)

	e, err := engine.Open(path,
		engine.WithDriver(os.Getenv("MYDB_DRIVER")),
		engine.WithLogger(logger()),
	)
	if err != nil {
		logger().Warn("open failed", zap.String("path", path), zap.Error(err))
		return nil
	}

	token := C.malloc(1)
	mu.Lock()
	engines[uintptr(token)] = e
	mu.Unlock()
	return token
}

//export mydb_close
func mydb_close(h unsafe.Pointer) {
	if h == nil {
		return
	}

	mu.Lock()
	e, ok := engines[uintptr(h)]
	delete(engines, uintptr(h))
	mu.Unlock()
	if !ok {
		return
	}

	if err := e.Close(); err != nil {
		logger().Warn("close failed", zap.Error(err))
	}
	C.free(h)
}

//export mydb_execute_json
func mydb_execute_json(h unsafe.Pointer, sql *C.char, out **C.char) C.int {
	if out == nil {
		return C.int(engine.StatusNullOut)
	}
	*out = nil
	if h == nil || sql == nil {
		return C.int(engine.StatusInvalidArgument)
	}

	mu.Lock()
	e, ok := engines[uintptr(h)]
	mu.Unlock()
	if !ok {
		return C.int(engine.StatusInvalidArgument)
	}

	status, payload := e.Execute(C.GoString(sql))
	if payload != nil {
		*out = C.CString(string(payload))
	}
	return C.int(status)
}

//export mydb_free
func mydb_free(p unsafe.Pointer) {
	C.free(p)
}

func main() {}
