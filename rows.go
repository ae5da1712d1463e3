package mydb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Row is one row object with the engine's column order kept.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column.
func (row Row) Get(column string) (any, bool) {
	for i, c := range row.Columns {
		if c == column {
			return row.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a map, losing column order.
func (row Row) Map() map[string]any {
	m := make(map[string]any, len(row.Columns))
	for i, c := range row.Columns {
		m[c] = row.Values[i]
	}
	return m
}

// Rows decodes a tabular payload: either a bare array of row objects or an
// object carrying them under "rows". Numbers are returned as json.Number.
func (r *Result) Rows() ([]Row, error) {
	if r.null {
		return nil, ErrNoContent
	}
	// The decoder below stops at the closing bracket, so trailing bytes are
	// only caught here.
	if !json.Valid(r.raw) {
		return nil, errors.New("failed to decode rows: payload is not valid JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(r.raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}

	switch tok {
	case json.Delim('['):
		return decodeRows(dec)
	case json.Delim('{'):
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to decode rows: %w", err)
			}
			if key != "rows" {
				var skip json.RawMessage
				if err := dec.Decode(&skip); err != nil {
					return nil, fmt.Errorf("failed to decode rows: %w", err)
				}
				continue
			}
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to decode rows: %w", err)
			}
			if tok != json.Delim('[') {
				return nil, ErrNotTabular
			}
			return decodeRows(dec)
		}
		return nil, ErrNotTabular
	default:
		return nil, ErrNotTabular
	}
}

// decodeRows reads row objects up to and including the closing bracket.
func decodeRows(dec *json.Decoder) ([]Row, error) {
	rows := []Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode rows: %w", err)
		}
		if tok != json.Delim('{') {
			return nil, ErrNotTabular
		}

		var row Row
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to decode rows: %w", err)
			}
			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("failed to decode rows: %w", err)
			}
			row.Columns = append(row.Columns, key.(string))
			row.Values = append(row.Values, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to decode rows: %w", err)
		}
		rows = append(rows, row)
	}

	if _, err := dec.Token(); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}
