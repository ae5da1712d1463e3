// Package native binds the mydb C ABI.
//
// It is the only package that sees raw foreign pointers. A Library is an
// immutable table of the engine entry points (open, close, execute and the
// allocator-matched free), built once per process either by loading a shared
// library with Load or by wrapping an in-process implementation with New.
//
// Values handed out by a Library are capabilities:
//   - Handle closes exactly once; any use after Close returns ErrHandleClosed.
//   - Buffer owns one result payload and releases it exactly once, through the
//     free entry of the same Library that produced it.
//
// # Usage
//
//	lib, err := native.Load("/usr/local/lib/libmydb.so")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h, err := lib.Open("test.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	status, buf, err := h.Execute("select * from t")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer buf.Release()
//	payload, err := buf.Bytes()
//
// # ABI
//
// The loaded library must export:
//
//	void* mydb_open(const char* filename);
//	void  mydb_close(void* h);
//	int   mydb_execute_json(void* h, const char* sql, char** out_json);
//	void  mydb_free(void* p);
//
// mydb_free is optional. When it is missing, free is resolved through the
// library's own handle so the C runtime the library was linked against is used.
package native
