package readerer

import (
	"context"
	"errors"
	"strings"

	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/kana"
)

// Annotation is a kanji-bearing token matched against the lexicon store.
type Annotation struct {
	Token
	// Hiragana is the token reading in hiragana.
	Hiragana string
	// Word is the matched headword, nil when neither the surface nor the
	// base form is in the store.
	Word *db.Word
	// Parts are the furigana segments of Hiragana when the word has it.
	Parts []db.WordPart
}

type cachedWord struct {
	word     *db.Word
	readings map[string]int64
}

// Annotator looks tokens up in a built store.
type Annotator struct {
	analyzer *Analyzer
	db       db.DBExecutor
	cache    map[string]*cachedWord
}

// NewAnnotator creates an annotator reading from ex.
func NewAnnotator(analyzer *Analyzer, ex db.DBExecutor) *Annotator {
	return &Annotator{analyzer: analyzer, db: ex, cache: make(map[string]*cachedWord)}
}

// Annotate tokenizes text and returns one annotation per kanji-bearing
// token, in text order.
func (a *Annotator) Annotate(ctx context.Context, text string) ([]Annotation, error) {
	var out []Annotation
	for _, tok := range a.analyzer.Analyze(text) {
		if !kana.IsKanjiBearing(tok.Surface) {
			continue
		}
		ann := Annotation{Token: tok, Hiragana: kana.ToHiragana(tok.Reading)}

		reading := ann.Hiragana
		cw, err := a.lookup(ctx, tok.Surface)
		if err != nil {
			return nil, err
		}
		if cw == nil && tok.BaseForm != tok.Surface {
			if cw, err = a.lookup(ctx, tok.BaseForm); err != nil {
				return nil, err
			}
			reading = baseReading(tok.Surface, tok.BaseForm, ann.Hiragana)
		}
		if cw != nil {
			ann.Word = cw.word
			if id, ok := cw.readings[reading]; ok {
				linked, err := db.GetReadingParts(ctx, a.db, id)
				if err != nil {
					return nil, err
				}
				for _, p := range linked {
					ann.Parts = append(ann.Parts, p.WordPart)
				}
			}
		}
		out = append(out, ann)
	}
	return out, nil
}

// baseReading rewrites the reading of an inflected surface into the reading
// of its base form by swapping the kana tails after their common prefix:
// 食べ/たべ with base 食べる gives たべる, 書い/かい with base 書く gives かく.
func baseReading(surface, base, reading string) string {
	s, b := []rune(surface), []rune(base)
	n := 0
	for n < len(s) && n < len(b) && s[n] == b[n] {
		n++
	}
	surfaceTail := kana.ToHiragana(string(s[n:]))
	if !strings.HasSuffix(reading, surfaceTail) {
		return reading
	}
	return strings.TrimSuffix(reading, surfaceTail) + kana.ToHiragana(string(b[n:]))
}

// lookup returns the word and its readings, or nil when text is not a
// headword.
func (a *Annotator) lookup(ctx context.Context, text string) (*cachedWord, error) {
	if cw, ok := a.cache[text]; ok {
		return cw, nil
	}
	w, err := db.GetWord(ctx, a.db, text)
	if errors.Is(err, db.ErrNotFound) {
		a.cache[text] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	readings, err := db.GetReadings(ctx, a.db, w.ID)
	if err != nil {
		return nil, err
	}
	cw := &cachedWord{word: w, readings: make(map[string]int64, len(readings))}
	for _, r := range readings {
		cw.readings[r.Reading] = r.ID
	}
	a.cache[text] = cw
	return cw, nil
}
