package db

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// TestInitDBCreatesSchema verifies InitDB creates every lexical table and is
// safe to run against an already migrated database.
func TestInitDBCreatesSchema(t *testing.T) {
	s := setupTestDB(t)
	if err := InitDB(context.Background(), s.DB); err != nil {
		t.Fatalf("second InitDB failed: %v", err)
	}

	for _, table := range []string{"dictionary", "word", "word_reading", "word_part_reading", "word_reading_word_part_reading"} {
		var name string
		if err := s.DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}

	rows, err := s.DB.Query("PRAGMA table_info(word)")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	for _, c := range []string{"word", "frequency", "meanings", "dictionary_id"} {
		if !cols[c] {
			t.Fatalf("expected column %s in word, got %v", c, cols)
		}
	}
}
