package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetWord returns the word row for the exact headword text.
func GetWord(ctx context.Context, db DBExecutor, text string) (*Word, error) {
	var w Word
	err := db.QueryRowContext(ctx,
		`SELECT id, word, meanings, frequency, dictionary_id FROM word WHERE word = ?`, text,
	).Scan(&w.ID, &w.Word, &w.Meanings, &w.Frequency, &w.DictionaryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %s: %w", text, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetReadings returns the readings of a word in insertion order.
func GetReadings(ctx context.Context, db DBExecutor, wordID int64) ([]Reading, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, word_id, word_reading FROM word_reading WHERE word_id = ? ORDER BY id`, wordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.WordID, &r.Reading); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LinkedPart is a furigana segment linked to a reading, with its row id.
type LinkedPart struct {
	ID int64
	WordPart
}

// GetReadingParts returns the furigana segments linked to a reading.
func GetReadingParts(ctx context.Context, db DBExecutor, readingID int64) ([]LinkedPart, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.word_part, p.word_part_reading
		FROM word_reading_word_part_reading l
		JOIN word_part_reading p ON p.id = l.word_part_reading_id
		WHERE l.word_reading_id = ?
		ORDER BY p.id`, readingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LinkedPart
	for rows.Next() {
		var p LinkedPart
		if err := rows.Scan(&p.ID, &p.Part, &p.Reading); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPartExamples returns up to limit words whose readings use the segment,
// most frequent first. Words without a frequency rank sort last. The reading
// identified by excludeReadingID is left out.
func GetPartExamples(ctx context.Context, db DBExecutor, partID, excludeReadingID int64, limit int) ([]PartExample, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := db.QueryContext(ctx, `
		SELECT w.word, r.word_reading, w.frequency
		FROM word_reading_word_part_reading l
		JOIN word_reading r ON r.id = l.word_reading_id
		JOIN word w ON w.id = r.word_id
		WHERE l.word_part_reading_id = ? AND r.id != ?
		ORDER BY w.frequency IS NULL, w.frequency, w.id
		LIMIT ?`, partID, excludeReadingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PartExample
	for rows.Next() {
		var ex PartExample
		if err := rows.Scan(&ex.Word, &ex.Reading, &ex.Frequency); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}
