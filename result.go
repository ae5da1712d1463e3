package mydb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Result is a decoded engine reply. It holds only Go memory; the engine's
// buffer has already been released when a Result is returned.
type Result struct {
	status int32
	raw    []byte
	null   bool
	text   string
	lossy  bool
}

func newResult(status int32, raw []byte, null bool) *Result {
	text, lossy := decodeText(raw)
	return &Result{
		status: status,
		raw:    raw,
		null:   null,
		text:   text,
		lossy:  lossy,
	}
}

// decodeText replaces every byte that is not part of a valid UTF-8 sequence
// with U+FFFD.
func decodeText(raw []byte) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), false
	}

	var sb strings.Builder
	sb.Grow(len(raw) + 8)
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(raw[:size])
		}
		raw = raw[size:]
	}
	return sb.String(), true
}

// Status returns the engine status code; zero is success.
func (r *Result) Status() int32 {
	return r.status
}

func (r *Result) OK() bool {
	return r.status == 0
}

// NoContent reports whether the engine returned a null payload.
func (r *Result) NoContent() bool {
	return r.null
}

// Text returns the decoded payload. It is empty both for an empty payload
// and for no content.
func (r *Result) Text() string {
	return r.text
}

// Lossy reports whether decoding replaced invalid UTF-8.
func (r *Result) Lossy() bool {
	return r.lossy
}

// Bytes returns a copy of the payload exactly as the engine produced it.
func (r *Result) Bytes() []byte {
	if r.raw == nil {
		return nil
	}
	return bytes.Clone(r.raw)
}

// Valid reports whether the payload is syntactically valid JSON.
func (r *Result) Valid() bool {
	return !r.null && json.Valid(r.raw)
}

// Decode unmarshals the payload into v.
func (r *Result) Decode(v any) error {
	if r.null {
		return ErrNoContent
	}
	if err := json.Unmarshal(r.raw, v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// Value decodes the payload into generic Go values. Numbers are returned as
// json.Number so integers keep their precision.
func (r *Result) Value() (any, error) {
	if r.null {
		return nil, ErrNoContent
	}
	dec := json.NewDecoder(bytes.NewReader(r.raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to decode result: trailing data after JSON value")
	}
	return v, nil
}

type statusObject struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Message returns the message of a status or error object, falling back to
// its error code. It reports false when the payload is not such an object.
func (r *Result) Message() (string, bool) {
	if r.null {
		return "", false
	}
	trimmed := bytes.TrimSpace(r.raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}

	var obj statusObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", false
	}
	if obj.Message != "" {
		return obj.Message, true
	}
	if obj.Error != "" {
		return obj.Error, true
	}
	return "", false
}
