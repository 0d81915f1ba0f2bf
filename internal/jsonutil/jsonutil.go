// Package jsonutil encodes reports and log lines as JSON. Paths and diffs are written
// verbatim: HTML escaping is off, so "<", ">" and "&" survive.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"io"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
)

// Line encodes v as one compact JSON line terminated by a newline
func Line(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, appErrors.WrapWithContext(err, "encode JSON line")
	}
	return buf.Bytes(), nil
}

// Write encodes v to w with two-space indentation
func Write(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return appErrors.WrapWithContext(err, "write JSON")
	}
	return nil
}

// Decode parses data into a T, rejecting unknown fields
func Decode[T any](data []byte) (T, error) {
	var result T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return result, appErrors.WrapWithContext(err, "decode JSON")
	}
	return result, nil
}
