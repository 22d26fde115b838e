// Package readerer tokenizes Japanese text with kagome and annotates the
// tokens from a built lexicon store.
package readerer

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Version returns the current version of the package.
func Version() string { return "0.2.0" }

// IPA feature positions.
const (
	featurePOS      = 0
	featureBaseForm = 6
	featureReading  = 7
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface  string // as written, e.g. "食べ"
	BaseForm string // dictionary form, e.g. "食べる"
	Reading  string // katakana, e.g. "タベ"; empty for unknown words
	POS      string // primary part of speech
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer handles text segmentation.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a tokenizer backed by the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens, dropping whitespace.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		features := tok.Features()
		result = append(result, Token{
			Surface:  tok.Surface,
			BaseForm: feature(features, featureBaseForm, tok.Surface),
			Reading:  feature(features, featureReading, ""),
			POS:      feature(features, featurePOS, ""),
		})
	}
	return result
}

func feature(features []string, i int, fallback string) string {
	if i < len(features) && features[i] != "*" {
		return features[i]
	}
	return fallback
}

// AnalyzeDocument splits the text into sentences and tokenizes each one.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: a.Analyze(s)})
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。！？ and newlines end a sentence.
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
