package db

import "database/sql"

// Dictionary is the metadata row describing one build.
type Dictionary struct {
	ID          int64
	Name        string
	GUID        string
	StatsConfig string // JSON, may be empty
	Description string
}

// Word is a kanji-bearing headword with its aggregated meaning blocks.
type Word struct {
	ID           int64
	Word         string
	Meanings     string
	Frequency    sql.NullInt64
	DictionaryID int64
}

// WordRef is the cached state of a word row kept by the in-memory indexes.
type WordRef struct {
	ID        int64
	Meanings  string
	Frequency sql.NullInt64
}

// Reading is a canonical (hiragana) reading attached to a word.
type Reading struct {
	ID      int64
	WordID  int64
	Reading string
}

// ReadingKey identifies a reading row by its natural key.
type ReadingKey struct {
	WordID  int64
	Reading string
}

// WordPart is a furigana segment: a literal span of a headword and the
// reading of that span.
type WordPart struct {
	Part    string
	Reading string
}

// ReadingPartLink associates a reading with one of its furigana segments.
type ReadingPartLink struct {
	ReadingID int64
	PartID    int64
}

// PartExample is another word whose reading uses a given furigana segment.
type PartExample struct {
	Word      string
	Reading   string
	Frequency sql.NullInt64
}

// Counts summarizes the row counts of the lexical tables.
type Counts struct {
	Words     int
	Readings  int
	WordParts int
	Links     int
}
