// Package mydb binds Go programs to the mydb embedded SQL engine.
//
// The engine lives on the far side of a C ABI. This package owns the two
// halves of talking to it: a handle that is opened once and closed exactly
// once, and a command channel that sends SQL text, copies the JSON payload
// the engine allocated into Go memory and hands that payload back to the
// engine's own deallocator before returning.
//
// # Quick Start
//
// Load the shared library once at startup and open a database:
//
//	lib, err := native.Load("./libmydb.so")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = mydb.With(lib, "app.db", func(db *mydb.DB) error {
//		if _, err := db.Execute("create table files (id int, name varchar)"); err != nil {
//			return err
//		}
//		result, err := db.Execute("select * from files")
//		if err != nil {
//			return err
//		}
//		rows, err := result.Rows()
//		...
//	})
//
// Without a shared library, engine.NewLibrary provides the same ABI in
// process on top of DuckDB or SQLite.
//
// # Results
//
// A Result keeps the raw payload bytes, a permissive UTF-8 decoding of them
// and the engine status. A null payload (NoContent) is distinct from an empty
// one. JSON is only checked for syntax; Rows decodes row arrays with column
// order preserved, and Message reads the message of a status or error object.
//
// A non-zero status is reported as an *ExecutionError alongside the Result.
package mydb
