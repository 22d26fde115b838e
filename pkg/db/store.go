package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultBatchSize is the number of rows per multi-row INSERT.
const DefaultBatchSize = 500

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// WriteError wraps a failed store write (constraint violation or I/O).
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// IsConstraintViolation reports whether err is a store write rejected by a
// UNIQUE or other constraint.
func IsConstraintViolation(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && isUniqueConstraintErr(we.Err)
}

// UpsertDictionary inserts the dictionary metadata row if no dictionary with
// the same name exists and returns its id.
func UpsertDictionary(ctx context.Context, db DBExecutor, d Dictionary) (int64, error) {
	if strings.TrimSpace(d.Name) == "" {
		return 0, fmt.Errorf("dictionary name must be non-empty")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO dictionary (name, guid, stats_config, description) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		d.Name, d.GUID, nullableString(d.StatsConfig), nullableString(d.Description),
	)
	if err != nil {
		return 0, &WriteError{Op: "insert dictionary", Err: err}
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM dictionary WHERE name = ?`, d.Name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("dictionary %s: %w", d.Name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("select dictionary %s: %w", d.Name, err)
	}
	return id, nil
}

// GetDictionary returns the dictionary row with the given name.
func GetDictionary(ctx context.Context, db DBExecutor, name string) (*Dictionary, error) {
	var d Dictionary
	var stats, desc sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, guid, stats_config, description FROM dictionary WHERE name = ?`, name,
	).Scan(&d.ID, &d.Name, &d.GUID, &stats, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dictionary %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	d.StatsConfig = stats.String
	d.Description = desc.String
	return &d, nil
}

// LoadWordIndex reads every word into a text→state map.
func LoadWordIndex(ctx context.Context, db DBExecutor) (map[string]WordRef, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, word, meanings, frequency FROM word`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idx := make(map[string]WordRef)
	for rows.Next() {
		var ref WordRef
		var word string
		if err := rows.Scan(&ref.ID, &word, &ref.Meanings, &ref.Frequency); err != nil {
			return nil, err
		}
		idx[word] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// InsertWord inserts a new word and returns its id.
func InsertWord(ctx context.Context, db DBExecutor, word, meanings string, dictionaryID int64) (int64, error) {
	if strings.TrimSpace(word) == "" {
		return 0, fmt.Errorf("word must be non-empty")
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO word (word, meanings, dictionary_id) VALUES (?, ?, ?)`,
		word, meanings, dictionaryID,
	)
	if err != nil {
		return 0, &WriteError{Op: "insert word " + word, Err: err}
	}
	return res.LastInsertId()
}

// UpdateWordMeanings replaces the aggregated meanings of a word.
func UpdateWordMeanings(ctx context.Context, db DBExecutor, wordID int64, meanings string) error {
	if wordID <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	if _, err := db.ExecContext(ctx, `UPDATE word SET meanings = ? WHERE id = ?`, meanings, wordID); err != nil {
		return &WriteError{Op: "update meanings", Err: err}
	}
	return nil
}

// UpdateWordFrequency stores a new frequency rank for a word.
func UpdateWordFrequency(ctx context.Context, db DBExecutor, wordID, frequency int64) error {
	if wordID <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	if _, err := db.ExecContext(ctx, `UPDATE word SET frequency = ? WHERE id = ?`, frequency, wordID); err != nil {
		return &WriteError{Op: "update frequency", Err: err}
	}
	return nil
}

// InsertReading attaches a reading to a word. Existing pairs are left alone;
// the returned flag reports whether a row was created.
func InsertReading(ctx context.Context, db DBExecutor, wordID int64, reading string) (bool, error) {
	if wordID <= 0 {
		return false, fmt.Errorf("wordID must be positive")
	}
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO word_reading (word_id, word_reading) VALUES (?, ?)`,
		wordID, reading,
	)
	if err != nil {
		return false, &WriteError{Op: "insert reading", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LoadReadingIndex reads every reading into a (word id, reading)→id map.
func LoadReadingIndex(ctx context.Context, db DBExecutor) (map[ReadingKey]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, word_id, word_reading FROM word_reading`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idx := make(map[ReadingKey]int64)
	for rows.Next() {
		var id int64
		var key ReadingKey
		if err := rows.Scan(&id, &key.WordID, &key.Reading); err != nil {
			return nil, err
		}
		idx[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// BulkInsertWordParts inserts furigana segments, ignoring existing pairs,
// and returns the number of rows created.
func BulkInsertWordParts(ctx context.Context, db DBExecutor, parts []WordPart, batchSize int) (int, error) {
	return batchProcess(parts, batchSize, func(batch []WordPart) (int, error) {
		args := make([]any, 0, len(batch)*2)
		for _, p := range batch {
			args = append(args, p.Part, p.Reading)
		}
		q := `INSERT OR IGNORE INTO word_part_reading (word_part, word_part_reading) VALUES ` + placeholders(len(batch), 2)
		return execCount(ctx, db, "insert word parts", q, args)
	})
}

// LoadWordPartIndex reads every furigana segment into a segment→id map.
func LoadWordPartIndex(ctx context.Context, db DBExecutor) (map[WordPart]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, word_part, word_part_reading FROM word_part_reading`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idx := make(map[WordPart]int64)
	for rows.Next() {
		var id int64
		var p WordPart
		if err := rows.Scan(&id, &p.Part, &p.Reading); err != nil {
			return nil, err
		}
		idx[p] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// BulkLinkReadingParts inserts reading↔segment links, ignoring existing
// pairs, and returns the number of rows created.
func BulkLinkReadingParts(ctx context.Context, db DBExecutor, links []ReadingPartLink, batchSize int) (int, error) {
	return batchProcess(links, batchSize, func(batch []ReadingPartLink) (int, error) {
		args := make([]any, 0, len(batch)*2)
		for _, l := range batch {
			args = append(args, l.ReadingID, l.PartID)
		}
		q := `INSERT OR IGNORE INTO word_reading_word_part_reading (word_reading_id, word_part_reading_id) VALUES ` + placeholders(len(batch), 2)
		return execCount(ctx, db, "link reading parts", q, args)
	})
}

// CountRows returns the row counts of the lexical tables.
func CountRows(ctx context.Context, db DBExecutor) (Counts, error) {
	var c Counts
	err := db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM word),
		(SELECT COUNT(*) FROM word_reading),
		(SELECT COUNT(*) FROM word_part_reading),
		(SELECT COUNT(*) FROM word_reading_word_part_reading)`,
	).Scan(&c.Words, &c.Readings, &c.WordParts, &c.Links)
	return c, err
}

func execCount(ctx context.Context, db DBExecutor, op, query string, args []any) (int, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &WriteError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// placeholders renders "(?, ?), (?, ?)" for rows tuples of width cols.
func placeholders(rows, cols int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// batchProcess splits items into batches and processes each via fn.
func batchProcess[T any](items []T, batchSize int, fn func([]T) (int, error)) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	total := 0
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		n, err := fn(items[i:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// nullableString returns nil for "" else the value.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
