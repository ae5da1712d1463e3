package engine

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// rowWriter streams row objects into a JSON array, keeping the driver's
// column order in every object.
type rowWriter struct {
	buf  bytes.Buffer
	keys [][]byte
	rows int
}

func newRowWriter(columns []string) *rowWriter {
	w := &rowWriter{keys: make([][]byte, len(columns))}
	for i, column := range columns {
		w.keys[i], _ = json.Marshal(column)
	}
	w.buf.WriteByte('[')
	return w
}

func (w *rowWriter) write(values []any) {
	if w.rows > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.WriteByte('{')
	for i, key := range w.keys {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.Write(key)
		w.buf.WriteByte(':')
		var value any
		if i < len(values) {
			value = values[i]
		}
		w.buf.Write(encodeValue(value))
	}
	w.buf.WriteByte('}')
	w.rows++
}

func (w *rowWriter) bytes() []byte {
	w.buf.WriteByte(']')
	return w.buf.Bytes()
}

// encodeValue renders one scanned column. Text arrives as []byte from some
// drivers, so only bytes that are not valid UTF-8 are treated as binary.
func encodeValue(value any) []byte {
	switch v := value.(type) {
	case nil:
		return []byte("null")
	case []byte:
		if utf8.Valid(v) {
			value = string(v)
		} else {
			value = base64.StdEncoding.EncodeToString(v)
		}
	case time.Time:
		value = v.Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(value)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprint(value))
	}
	return data
}
