package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Status is the integer outcome returned across the ABI.
type Status int32

const (
	StatusOK              Status = 0
	StatusNullOut         Status = -1
	StatusInvalidArgument Status = -2
	StatusPrepareFailed   Status = -3
	StatusExecuteFailed   Status = -4
	StatusUnsupported     Status = -5
)

const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite3"

	MemoryPath = ":memory:"
)

var ErrUnknownDriver = errors.New("unknown driver")

// Option configures an Engine.
type Option func(*options)

type options struct {
	driver string
	log    *zap.Logger
}

// WithDriver selects the database/sql driver (DriverDuckDB or DriverSQLite).
func WithDriver(driver string) Option {
	return func(o *options) {
		if driver != "" {
			o.driver = driver
		}
	}
}

// WithLogger sets the logger for open, close and failed statements.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func newOptions(opts []Option) options {
	o := options{driver: DriverDuckDB, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine is one open database. Statements run on a single connection, so they
// observe each other's effects in issue order.
type Engine struct {
	db     *sqlx.DB
	driver string
	path   string
	log    *zap.Logger
}

// Open opens the database at path; MemoryPath opens a private in-memory one.
func Open(path string, opts ...Option) (*Engine, error) {
	o := newOptions(opts)
	if path == "" {
		return nil, errors.New("empty database path")
	}

	dsn, err := dataSource(o.driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(o.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", o.driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s database %s: %w", o.driver, path, err)
	}

	o.log.Debug("database opened", zap.String("driver", o.driver), zap.String("path", path))

	return &Engine{
		db:     db,
		driver: o.driver,
		path:   path,
		log:    o.log,
	}, nil
}

func dataSource(driver, path string) (string, error) {
	switch driver {
	case DriverDuckDB:
		if path == MemoryPath {
			return "", nil
		}
		return path, nil
	case DriverSQLite:
		return path, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// Driver returns the database/sql driver name in use.
func (engine *Engine) Driver() string {
	return engine.driver
}

// Close closes the underlying database.
func (engine *Engine) Close() error {
	engine.log.Debug("database closed", zap.String("path", engine.path))
	return engine.db.Close()
}

type ack struct {
	OK           bool   `json:"ok"`
	Message      string `json:"message"`
	RowsAffected int64  `json:"rows_affected"`
}

type failure struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Execute runs one statement and returns its status and JSON payload. A nil
// payload means the statement produced no content.
func (engine *Engine) Execute(query string) (Status, []byte) {
	query = strings.TrimSpace(query)
	if query == "" {
		return fail(StatusInvalidArgument, "invalid_argument", errors.New("empty statement"))
	}

	if keyword := leadingKeyword(query); unsupportedKeywords[keyword] {
		return fail(StatusUnsupported, "unsupported", fmt.Errorf("%s statements are not supported", keyword))
	}

	stmt, err := engine.db.Preparex(query)
	if err != nil {
		engine.log.Debug("prepare failed", zap.String("sql", query), zap.Error(err))
		return fail(StatusPrepareFailed, "prepare_failed", err)
	}
	defer stmt.Close()

	if returnsRows(query) {
		return engine.query(stmt)
	}
	return engine.exec(stmt)
}

func (engine *Engine) query(stmt *sqlx.Stmt) (Status, []byte) {
	rows, err := stmt.Queryx()
	if err != nil {
		return fail(StatusExecuteFailed, "execute_failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fail(StatusExecuteFailed, "execute_failed", err)
	}

	w := newRowWriter(columns)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return fail(StatusExecuteFailed, "execute_failed", err)
		}
		w.write(values)
	}
	if err := rows.Err(); err != nil {
		return fail(StatusExecuteFailed, "execute_failed", err)
	}

	return StatusOK, w.bytes()
}

func (engine *Engine) exec(stmt *sqlx.Stmt) (Status, []byte) {
	res, err := stmt.Exec()
	if err != nil {
		return fail(StatusExecuteFailed, "execute_failed", err)
	}

	// Not every driver reports a count for DDL.
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}

	data, _ := json.Marshal(ack{OK: true, Message: "Executed.", RowsAffected: affected})
	return StatusOK, data
}

func fail(status Status, code string, err error) (Status, []byte) {
	data, _ := json.Marshal(failure{OK: false, Error: code, Message: err.Error()})
	return status, data
}

var rowKeywords = map[string]bool{
	"select":    true,
	"with":      true,
	"show":      true,
	"describe":  true,
	"pragma":    true,
	"values":    true,
	"explain":   true,
	"from":      true,
	"summarize": true,
}

// Statements that reach outside the database file.
var unsupportedKeywords = map[string]bool{
	"attach":  true,
	"detach":  true,
	"install": true,
	"load":    true,
}

// returnsRows looks only at the leading keyword; the statement itself is
// interpreted by the driver.
func returnsRows(query string) bool {
	return rowKeywords[leadingKeyword(query)]
}

func leadingKeyword(query string) string {
	query = strings.TrimLeft(query, "( \t\r\n")
	end := strings.IndexFunc(query, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '(' || r == ';'
	})
	if end >= 0 {
		query = query[:end]
	}
	return strings.ToLower(query)
}
