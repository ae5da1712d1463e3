package mydb

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nickyhof/mydb/native"
)

// Option configures a DB.
type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics *Metrics
}

// WithLogger logs handle and command events to log.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics records executions, releases and open handles in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// DB is an open database handle. Calls are serialized, so a DB may be shared
// between goroutines, but statements still run one at a time in the order
// the lock is acquired.
type DB struct {
	mu      sync.Mutex
	handle  *native.Handle
	lib     *native.Library
	path    string
	log     *zap.Logger
	metrics *Metrics
}

// Open opens the database at path through lib.
func Open(lib *native.Library, path string, opts ...Option) (*DB, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if lib == nil {
		return nil, &OpenError{Path: path, Err: errors.New("no library")}
	}
	if path == "" {
		return nil, &OpenError{Path: path, Err: errors.New("empty database path")}
	}
	if strings.IndexByte(path, 0) >= 0 {
		return nil, &OpenError{Path: path, Err: errors.New("path contains a NUL byte")}
	}

	handle, err := lib.Open(path)
	if err != nil {
		o.log.Warn("open failed", zap.String("library", lib.Name()), zap.String("path", path), zap.Error(err))
		return nil, &OpenError{Path: path, Err: err}
	}

	o.metrics.handleOpened()
	o.log.Debug("database opened", zap.String("library", lib.Name()), zap.String("path", path))

	return &DB{
		handle:  handle,
		lib:     lib,
		path:    path,
		log:     o.log,
		metrics: o.metrics,
	}, nil
}

// With opens the database, runs fn and closes the database on every exit
// path, including a panic in fn.
func With(lib *native.Library, path string, fn func(db *DB) error, opts ...Option) (err error) {
	db, err := Open(lib, path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && !errors.Is(cerr, ErrClosed) && err == nil {
			err = cerr
		}
	}()

	return fn(db)
}

// Path returns the identifier the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// Library returns the library the handle belongs to.
func (db *DB) Library() *native.Library {
	return db.lib
}

// Closed reports whether Close has been called.
func (db *DB) Closed() bool {
	return db.handle.Closed()
}

// Execute runs one command. The engine's payload is copied and released
// before Execute returns. When the engine reports a non-zero status, both
// the Result and an *ExecutionError are returned.
func (db *DB) Execute(command string) (*Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.handle.Closed() {
		return nil, ErrClosed
	}
	if !utf8.ValidString(command) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrInvalidCommand)
	}
	if strings.IndexByte(command, 0) >= 0 {
		return nil, fmt.Errorf("%w: contains a NUL byte", ErrInvalidCommand)
	}

	status, buf, err := db.handle.Execute(command)
	if err != nil {
		if errors.Is(err, native.ErrHandleClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	defer func() {
		if buf.Release() {
			db.metrics.bufferReleased()
		}
	}()

	raw, err := buf.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	result := newResult(status, raw, buf.Null())
	db.metrics.observe(result)

	if status != 0 {
		message, _ := result.Message()
		db.log.Debug("command failed",
			zap.Int32("status", status),
			zap.String("message", message),
		)
		return result, &ExecutionError{
			Status:  status,
			Message: message,
			Payload: result.Text(),
		}
	}

	db.log.Debug("command executed",
		zap.Int32("status", status),
		zap.Int("bytes", len(raw)),
		zap.Bool("no_content", result.NoContent()),
		zap.Bool("lossy", result.Lossy()),
	)
	return result, nil
}

// Close closes the handle. Only the first call reaches the engine; later
// calls return ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.handle.Close(); err != nil {
		if errors.Is(err, native.ErrHandleClosed) {
			return ErrClosed
		}
		return err
	}

	db.metrics.handleClosed()
	db.log.Debug("database closed", zap.String("path", db.path))
	return nil
}
