// Package kana normalizes Japanese reading strings into hiragana and
// classifies headwords by whether they carry ideographs.
package kana

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ConversionError reports a reading that has no canonical hiragana form.
type ConversionError struct {
	Text   string
	Rune   rune // offending rune, 0 when the whole input is rejected
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Rune != 0 {
		return fmt.Sprintf("kana: cannot convert %q: %s %q (U+%04X)", e.Text, e.Reason, e.Rune, e.Rune)
	}
	return fmt.Sprintf("kana: cannot convert %q: %s", e.Text, e.Reason)
}

// kanjiExtras are compatibility ideograph points treated as kanji in
// addition to the Han script: the Reiwa square and the square era names
// and day-of-month ideographic telegraph symbols.
var kanjiExtras = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x32FF, Hi: 0x32FF, Stride: 1},
		{Lo: 0x337B, Hi: 0x337F, Stride: 1},
		{Lo: 0x33E0, Hi: 0x33FE, Stride: 1},
	},
}

// IsKanjiBearing reports whether text contains at least one ideograph.
func IsKanjiBearing(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(kanjiExtras, r) {
			return true
		}
	}
	return false
}

// Spacing voicing marks are rewritten to their combining forms so that NFC
// can compose them with the preceding kana.
var voicingMarks = strings.NewReplacer("゛", "゙", "゜", "゚")

// ToCanonicalReading converts a kana reading to hiragana. Half-width
// katakana is widened and voicing marks are composed first. Kana
// punctuation (ー・＝゠〜～) passes through; any other non-kana rune makes
// the conversion fail.
func ToCanonicalReading(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", &ConversionError{Text: text, Reason: "invalid utf-8"}
	}
	s := norm.NFC.String(voicingMarks.Replace(width.Widen.String(text)))
	if s == "" {
		return "", &ConversionError{Text: text, Reason: "empty reading"}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x3041 && r <= 0x3096, r >= 0x309D && r <= 0x309F:
			b.WriteRune(r)
		case r >= 0x30A1 && r <= 0x30F6, r == 0x30FD, r == 0x30FE:
			b.WriteRune(r - 0x60)
		case r >= 0x30F7 && r <= 0x30FA:
			// ヷヸヹヺ have no hiragana counterpart
			b.WriteRune(r)
		case r == 'ー', r == '・', r == '＝', r == '゠', r == '〜', r == '～':
			b.WriteRune(r)
		default:
			return "", &ConversionError{Text: text, Rune: r, Reason: "unmappable rune"}
		}
	}
	return b.String(), nil
}

// ToHiragana converts Katakana to Hiragana and leaves every other rune
// untouched. Unlike ToCanonicalReading it never fails.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if (r >= 0x30A1 && r <= 0x30F6) || r == 0x30FD || r == 0x30FE {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
