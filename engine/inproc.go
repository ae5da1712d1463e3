package engine

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nickyhof/mydb/native"
)

// LibraryName is the name reported by libraries built with NewLibrary.
const LibraryName = "embedded"

// NewLibrary exposes the engine as an in-process native.Library. Handles and
// payloads are allocated from arena, and the library's deallocator frees into
// the same arena.
func NewLibrary(arena *Arena, opts ...Option) *native.Library {
	if arena == nil {
		arena = NewArena(nil)
	}
	return native.New(LibraryName, &symbols{
		arena:   arena,
		opts:    opts,
		log:     newOptions(opts).log,
		engines: make(map[uintptr]*session),
	})
}

type session struct {
	id     string
	engine *Engine
}

type symbols struct {
	arena *Arena
	opts  []Option
	log   *zap.Logger

	mu      sync.Mutex
	engines map[uintptr]*session
}

func (s *symbols) Open(path string) uintptr {
	engine, err := Open(path, s.opts...)
	if err != nil {
		s.log.Warn("open failed", zap.String("path", path), zap.Error(err))
		return 0
	}

	sess := &session{id: uuid.NewString(), engine: engine}
	token := s.arena.Alloc([]byte(sess.id))

	s.mu.Lock()
	s.engines[token] = sess
	s.mu.Unlock()

	s.log.Debug("handle opened", zap.String("session", sess.id), zap.String("path", path))
	return token
}

func (s *symbols) Close(handle uintptr) {
	s.mu.Lock()
	sess, ok := s.engines[handle]
	delete(s.engines, handle)
	s.mu.Unlock()

	if !ok {
		s.log.Warn("close of unknown handle", zap.Uintptr("handle", handle))
		return
	}
	if err := sess.engine.Close(); err != nil {
		s.log.Warn("close failed", zap.String("session", sess.id), zap.Error(err))
	}
	s.arena.Free(handle)
	s.log.Debug("handle closed", zap.String("session", sess.id))
}

func (s *symbols) Execute(handle uintptr, sql string, out *uintptr) int32 {
	if out == nil {
		return int32(StatusNullOut)
	}
	*out = 0

	s.mu.Lock()
	sess, ok := s.engines[handle]
	s.mu.Unlock()
	if !ok {
		return int32(StatusInvalidArgument)
	}

	status, payload := sess.engine.Execute(sql)
	if payload != nil {
		*out = s.arena.Alloc(payload)
	}
	return int32(status)
}

func (s *symbols) Free(ptr uintptr) {
	if !s.arena.Free(ptr) {
		s.log.Warn("free of pointer not owned by the arena", zap.Uintptr("ptr", ptr))
	}
}

func (s *symbols) CopyString(ptr uintptr) []byte {
	return s.arena.Copy(ptr)
}
