// Package frequency merges corpus frequency ranks into the word table.
//
// Records are three-element arrays, [surface, tag, value], where value is
// either a number or an object carrying it under "value", "frequency" or
// "frequency.value".
package frequency

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/japaniel/kanjilab/pkg/source"
)

// ErrCorrupted marks records carrying a mis-decoded legacy token.
var ErrCorrupted = errors.New("corrupted-encoding marker")

// DataShapeError reports a record the merger cannot use.
type DataShapeError struct {
	Index  int
	Reason string
	Err    error
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("frequency record %d: %s", e.Index, e.Reason)
}

func (e *DataShapeError) Unwrap() error { return e.Err }

// corruptionMarkers are checked against the raw record bytes: the marker
// itself, its JSON escape and its UTF-8-read-as-Latin-1 form.
var corruptionMarkers = [][]byte{
	[]byte("\u32d5"),
	[]byte(`\u32d5`),
	[]byte("ã‹•"),
}

// Observation is a usable record.
type Observation struct {
	Word  string
	Value int64
}

// Parse extracts the observation from one raw record.
func Parse(index int, raw []byte) (Observation, error) {
	lower := bytes.ToLower(raw)
	for _, m := range corruptionMarkers {
		if bytes.Contains(lower, m) || bytes.Contains(raw, m) {
			return Observation{}, &DataShapeError{Index: index, Reason: "contains corrupted-encoding marker", Err: ErrCorrupted}
		}
	}

	rec := gjson.ParseBytes(raw)
	if !rec.IsArray() {
		return Observation{}, &DataShapeError{Index: index, Reason: "record is not an array"}
	}
	fields := rec.Array()
	if len(fields) < 3 {
		return Observation{}, &DataShapeError{Index: index, Reason: fmt.Sprintf("record has %d fields, want 3", len(fields))}
	}
	if fields[0].Type != gjson.String || fields[0].Str == "" {
		return Observation{}, &DataShapeError{Index: index, Reason: "surface form is not a string"}
	}

	value, ok := extractValue(fields[2])
	if !ok {
		return Observation{}, &DataShapeError{Index: index, Reason: fmt.Sprintf("no numeric value in %s", fields[2].Raw)}
	}
	return Observation{Word: fields[0].Str, Value: value}, nil
}

func extractValue(v gjson.Result) (int64, bool) {
	if n, ok := number(v); ok {
		return n, true
	}
	if !v.IsObject() {
		return 0, false
	}
	if n, ok := number(v.Get("value")); ok {
		return n, true
	}
	freq := v.Get("frequency")
	if n, ok := number(freq); ok {
		return n, true
	}
	return number(freq.Get("value"))
}

// number accepts JSON numbers and numeric strings. Fractions are truncated.
// Negative ranks and values outside int64 are rejected.
func number(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return rank(v.Num)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, n >= 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return rank(f)
		}
	}
	return 0, false
}

func rank(f float64) (int64, bool) {
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if math.IsNaN(f) || f < 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Decode streams a JSON array and returns each element undecoded.
func Decode(r io.Reader) ([]json.RawMessage, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}

	var records []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("after %d records: %w", len(records), err)
	}
	return records, nil
}

// Load reads a frequency corpus file. Failures are returned as
// *source.ParseError.
func Load(path string) ([]json.RawMessage, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := Decode(rc)
	if err != nil {
		return nil, &source.ParseError{Path: path, Err: err}
	}
	return records, nil
}
