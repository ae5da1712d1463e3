package engine

import (
	// database/sql drivers selectable with WithDriver.
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
)
