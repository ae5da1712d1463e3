// Package engine is the embedded reference engine behind the mydb ABI.
//
// It answers statements with the same status codes and JSON payloads as the
// native libmydb, but delegates the SQL itself to DuckDB or SQLite through
// database/sql. It backs the c-shared build in ./bindings and, through
// NewLibrary, an in-process native.Library used by the CLI and by tests.
//
// # Payloads
//
// Row statements (select, with, show, describe, pragma, values, explain,
// from) produce a JSON array of row objects with column order preserved:
//
//	[{"id":1,"name":"a.jpg"},{"id":2,"name":"b.png"}]
//
// Other statements produce an acknowledgement:
//
//	{"ok":true,"message":"Executed.","rows_affected":1}
//
// Failures produce a non-zero status and an error object:
//
//	{"ok":false,"error":"prepare_failed","message":"no such table: missing"}
package engine
