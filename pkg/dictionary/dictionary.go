package dictionary

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/japaniel/kanjilab/pkg/source"
)

// Entry is one JMdict entry: headword variants, reading variants and senses.
type Entry struct {
	Seq      int              `xml:"ent_seq"`
	Kanji    []KanjiElement   `xml:"k_ele"`
	Readings []ReadingElement `xml:"r_ele"`
	Senses   []Sense          `xml:"sense"`
}

type KanjiElement struct {
	Text     string   `xml:"keb"`
	Info     []string `xml:"ke_inf"`
	Priority []string `xml:"ke_pri"`
}

type ReadingElement struct {
	Text     string    `xml:"reb"`
	NoKanji  *struct{} `xml:"re_nokanji"`
	Restrict []string  `xml:"re_restr"`
	// SenseRestrict narrows the reading to headwords named by a
	// reading-level sense restriction.
	SenseRestrict []string `xml:"re_stagk"`
	Info          []string `xml:"re_inf"`
	Priority      []string `xml:"re_pri"`
}

// IsNoKanji reports whether the reading is flagged as not a true reading of
// the entry's headwords.
func (r ReadingElement) IsNoKanji() bool { return r.NoKanji != nil }

type Sense struct {
	RestrictKanji   []string `xml:"stagk"`
	RestrictReading []string `xml:"stagr"`
	PartOfSpeech    []string `xml:"pos"`
	Misc            []string `xml:"misc"`
	Glosses         []Gloss  `xml:"gloss"`
}

type Gloss struct {
	Text string `xml:",chardata"`
	Lang string `xml:"lang,attr"` // empty means English
}

// English reports whether the gloss is English. Full JMdict releases carry
// glosses in several languages; only English ones are imported.
func (g Gloss) English() bool {
	return g.Lang == "" || g.Lang == "eng" || g.Lang == "en"
}

// Tags returns the entity codes attached to the entry: sense misc and
// part-of-speech codes plus headword and reading info codes.
func (e Entry) Tags() []string {
	var tags []string
	for _, s := range e.Senses {
		tags = append(tags, s.Misc...)
		tags = append(tags, s.PartOfSpeech...)
	}
	for _, k := range e.Kanji {
		tags = append(tags, k.Info...)
	}
	for _, r := range e.Readings {
		tags = append(tags, r.Info...)
	}
	return tags
}

// entityDecl matches the DTD entity declarations of the JMdict header.
var entityDecl = regexp.MustCompile(`<!ENTITY\s+([\w.\-]+)\s+"`)

// DecodeJMdict streams JMdict XML and returns its entries in document order.
// DTD entities resolve to their own names, so "&n;" decodes as "n".
func DecodeJMdict(r io.Reader) ([]Entry, error) {
	d := xml.NewDecoder(r)
	d.Entity = make(map[string]string)

	var entries []Entry
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("after %d entries: %w", len(entries), err)
		}
		switch t := tok.(type) {
		case xml.Directive:
			for _, m := range entityDecl.FindAllSubmatch(t, -1) {
				name := string(m[1])
				d.Entity[name] = name
			}
		case xml.StartElement:
			if t.Name.Local != "entry" {
				continue
			}
			var e Entry
			if err := d.DecodeElement(&e, &t); err != nil {
				return nil, fmt.Errorf("entry %d: %w", len(entries)+1, err)
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictKana    `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictKana struct {
	JMdictElement
	AppliesToKanji []string `json:"appliesToKanji"`
}

type JMdictSense struct {
	PartOfSpeech   []string      `json:"partOfSpeech"`
	AppliesToKanji []string      `json:"appliesToKanji"`
	AppliesToKana  []string      `json:"appliesToKana"`
	Misc           []string      `json:"misc"`
	Gloss          []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// DecodeJMdictSimplified reads jmdict-simplified JSON, either the release
// object { "words": [...] } or a bare array, and converts it to entries.
func DecodeJMdictSimplified(r io.Reader) ([]Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Words []JMdictEntry `json:"words"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Words) > 0 {
		return convertSimplified(wrapped.Words)
	}

	var words []JMdictEntry
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return convertSimplified(words)
}

func convertSimplified(words []JMdictEntry) ([]Entry, error) {
	entries := make([]Entry, 0, len(words))
	for _, w := range words {
		var e Entry
		seq, err := strconv.Atoi(w.Id)
		if err != nil {
			return nil, fmt.Errorf("word %d: invalid id %q: %w", len(entries), w.Id, err)
		}
		e.Seq = seq
		for _, k := range w.Kanji {
			e.Kanji = append(e.Kanji, KanjiElement{Text: k.Text, Info: k.Tags})
		}
		for _, k := range w.Kana {
			r := ReadingElement{Text: k.Text, Info: k.Tags}
			switch {
			case k.AppliesToKanji == nil || isWildcard(k.AppliesToKanji):
			case len(k.AppliesToKanji) == 0:
				r.NoKanji = &struct{}{}
			default:
				r.Restrict = k.AppliesToKanji
			}
			e.Readings = append(e.Readings, r)
		}
		for _, s := range w.Sense {
			sense := Sense{PartOfSpeech: s.PartOfSpeech, Misc: s.Misc}
			if !isWildcard(s.AppliesToKanji) {
				sense.RestrictKanji = s.AppliesToKanji
			}
			if !isWildcard(s.AppliesToKana) {
				sense.RestrictReading = s.AppliesToKana
			}
			for _, g := range s.Gloss {
				sense.Glosses = append(sense.Glosses, Gloss{Text: g.Text, Lang: g.Lang})
			}
			e.Senses = append(e.Senses, sense)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func isWildcard(list []string) bool {
	return len(list) == 1 && list[0] == "*"
}

// LoadLexicon reads a lexicon file. Paths containing ".json" are read as
// jmdict-simplified, everything else as JMdict XML. Failures are returned
// as *source.ParseError.
func LoadLexicon(path string) ([]Entry, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var entries []Entry
	if strings.Contains(path, ".json") {
		entries, err = DecodeJMdictSimplified(rc)
	} else {
		entries, err = DecodeJMdict(rc)
	}
	if err != nil {
		return nil, &source.ParseError{Path: path, Err: err}
	}
	return entries, nil
}
