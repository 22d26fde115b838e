package db

import "strings"

// Meaning separators. They are C0 control characters so they can never
// collide with gloss text.
const (
	GlossSeparator    = "\x1e"
	SenseSeparator    = "\x1d"
	HeadwordSeparator = "\x1f"
)

// SenseBlock joins the glosses of one sense.
func SenseBlock(glosses []string) string {
	return strings.Join(glosses, GlossSeparator)
}

// EntryBlock joins the sense blocks a headword received from one entry.
func EntryBlock(senses []string) string {
	return strings.Join(senses, SenseSeparator)
}

// AppendMeaningBlock appends block to the stored meanings unless an identical
// block is already present. It reports whether meanings changed.
func AppendMeaningBlock(meanings, block string) (string, bool) {
	if block == "" {
		return meanings, false
	}
	if meanings == "" {
		return block, true
	}
	for _, existing := range strings.Split(meanings, HeadwordSeparator) {
		if existing == block {
			return meanings, false
		}
	}
	return meanings + HeadwordSeparator + block, true
}

// SplitMeanings decodes stored meanings into headword blocks, senses and
// glosses.
func SplitMeanings(meanings string) [][][]string {
	if meanings == "" {
		return nil
	}
	blocks := strings.Split(meanings, HeadwordSeparator)
	out := make([][][]string, 0, len(blocks))
	for _, b := range blocks {
		senses := strings.Split(b, SenseSeparator)
		decoded := make([][]string, 0, len(senses))
		for _, s := range senses {
			decoded = append(decoded, strings.Split(s, GlossSeparator))
		}
		out = append(out, decoded)
	}
	return out
}
