// Package furigana links JmdictFurigana alignments to the readings created
// by the lexicon import.
package furigana

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/japaniel/kanjilab/pkg/source"
)

// Item aligns one (headword, reading) pair with its furigana segments.
type Item struct {
	Text     string    `json:"text"`
	Reading  string    `json:"reading"`
	Furigana []Segment `json:"furigana"`
}

// Segment is a span of the headword. Rt is empty for kana spans that need
// no furigana.
type Segment struct {
	Ruby string `json:"ruby"`
	Rt   string `json:"rt,omitempty"`
}

// Decode streams a JSON array of items.
func Decode(r io.Reader) ([]Item, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}

	var items []Item
	for dec.More() {
		var it Item
		if err := dec.Decode(&it); err != nil {
			return nil, fmt.Errorf("item %d: %w", len(items), err)
		}
		items = append(items, it)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("after %d items: %w", len(items), err)
	}
	return items, nil
}

// Load reads a furigana corpus file. Failures are returned as
// *source.ParseError.
func Load(path string) ([]Item, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	items, err := Decode(rc)
	if err != nil {
		return nil, &source.ParseError{Path: path, Err: err}
	}
	return items, nil
}
