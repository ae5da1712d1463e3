// Package mydbtest provides in-process libraries for testing code built on
// mydb, in the spirit of net/http/httptest.
//
// NewLibrary runs the embedded engine; NewStub replays scripted replies.
// Both allocate every handle and payload from an Allocator and fail the test
// at cleanup if anything is still outstanding or was released twice.
package mydbtest

import (
	"bytes"
	"sync"
	"testing"

	"github.com/nickyhof/mydb/engine"
	"github.com/nickyhof/mydb/native"
)

// Allocator is an engine.Arena that keeps a log of every operation.
type Allocator struct {
	*engine.Arena

	mu     sync.Mutex
	events []engine.Event
}

func NewAllocator() *Allocator {
	a := &Allocator{}
	a.Arena = engine.NewArena(a.record)
	return a
}

func (a *Allocator) record(e engine.Event) {
	a.mu.Lock()
	a.events = append(a.events, e)
	a.mu.Unlock()
}

// Events returns a copy of the operation log.
func (a *Allocator) Events() []engine.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]engine.Event(nil), a.events...)
}

// Violations returns frees and copies of pointers the allocator did not own.
func (a *Allocator) Violations() []engine.Event {
	var out []engine.Event
	for _, e := range a.Events() {
		if e.Op == engine.OpInvalidFree || e.Op == engine.OpInvalidCopy {
			out = append(out, e)
		}
	}
	return out
}

// Check fails tb if blocks are outstanding or any violation was recorded.
func (a *Allocator) Check(tb testing.TB) {
	tb.Helper()
	if n := a.Outstanding(); n != 0 {
		tb.Errorf("mydbtest: %d allocation(s) outstanding", n)
	}
	for _, v := range a.Violations() {
		tb.Errorf("mydbtest: %s of %#x", v.Op, v.Addr)
	}
}

// NewLibrary returns the embedded engine as a library whose allocator is
// checked when the test finishes.
func NewLibrary(tb testing.TB, opts ...engine.Option) (*native.Library, *Allocator) {
	tb.Helper()
	alloc := NewAllocator()
	tb.Cleanup(func() { alloc.Check(tb) })
	return engine.NewLibrary(alloc.Arena, opts...), alloc
}

// Response is one scripted engine reply. With Null set the engine returns no
// payload; otherwise Payload is returned, truncated at its first NUL byte as
// a C string would be.
type Response struct {
	Status  int32
	Payload []byte
	Null    bool
}

// Stub is a scripted engine. Replies are consumed in order; once they run out
// every command gets Default.
type Stub struct {
	Default  Response
	FailOpen bool

	alloc *Allocator

	mu        sync.Mutex
	responses []Response
	commands  []string
	opens     int
	closes    int
}

// NewStub returns a library over a Stub that replies with responses.
func NewStub(tb testing.TB, responses ...Response) (*native.Library, *Stub) {
	tb.Helper()
	s := &Stub{
		Default:   Response{Null: true},
		alloc:     NewAllocator(),
		responses: responses,
	}
	tb.Cleanup(func() { s.alloc.Check(tb) })
	return native.New("stub", s), s
}

// Allocator returns the allocator behind the stub.
func (s *Stub) Allocator() *Allocator {
	return s.alloc
}

// Commands returns the commands received so far.
func (s *Stub) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Stub) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *Stub) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *Stub) Open(path string) uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOpen {
		return 0
	}
	s.opens++
	return s.alloc.Alloc([]byte(path))
}

func (s *Stub) Close(handle uintptr) {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.alloc.Free(handle)
}

func (s *Stub) Execute(handle uintptr, sql string, out *uintptr) int32 {
	s.mu.Lock()
	s.commands = append(s.commands, sql)
	resp := s.Default
	if len(s.responses) > 0 {
		resp = s.responses[0]
		s.responses = s.responses[1:]
	}
	s.mu.Unlock()

	*out = 0
	if !resp.Null {
		payload := resp.Payload
		if i := bytes.IndexByte(payload, 0); i >= 0 {
			payload = payload[:i]
		}
		*out = s.alloc.Alloc(payload)
	}
	return resp.Status
}

func (s *Stub) Free(ptr uintptr) {
	s.alloc.Free(ptr)
}

func (s *Stub) CopyString(ptr uintptr) []byte {
	return s.alloc.Copy(ptr)
}
