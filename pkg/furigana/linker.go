package furigana

import (
	"context"
	"fmt"

	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/kana"
	"github.com/japaniel/kanjilab/pkg/logging"
)

// Stats counts what a link run did.
type Stats struct {
	Items   int
	Claimed int

	SkippedNoWord     int
	SkippedNoReading  int
	SkippedBadReading int
	SkippedClaimed    int
	SkippedNoSegments int
	SegmentsSkipped   int

	PartsCreated int
	LinksCreated int
}

// Skipped returns the number of items that produced no links.
func (s Stats) Skipped() int {
	return s.SkippedNoWord + s.SkippedNoReading + s.SkippedBadReading + s.SkippedClaimed + s.SkippedNoSegments
}

// Linker turns furigana items into word_part_reading rows and links them to
// existing readings. It never creates words or readings.
type Linker struct {
	BatchSize     int
	ProgressEvery int
}

type pendingLink struct {
	readingID int64
	part      db.WordPart
}

// Link resolves items in order and writes the segment vocabulary and links.
// A reading is claimed by the first item that queues a segment for it;
// later items resolving to the same reading are ignored.
func (l *Linker) Link(ctx context.Context, ex db.DBExecutor, items []Item) (Stats, error) {
	log := logging.FromContext(ctx)
	var stats Stats

	words, err := db.LoadWordIndex(ctx, ex)
	if err != nil {
		return stats, fmt.Errorf("load word index: %w", err)
	}
	readings, err := db.LoadReadingIndex(ctx, ex)
	if err != nil {
		return stats, fmt.Errorf("load reading index: %w", err)
	}

	claimed := make(map[int64]struct{})
	seen := make(map[db.WordPart]struct{})
	var vocab []db.WordPart
	var pending []pendingLink

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Items++
		if n := l.ProgressEvery; n > 0 && (i+1)%n == 0 {
			log.Info().Int("items", i+1).Int("claimed", stats.Claimed).Msg("furigana progress")
		}

		word, ok := words[it.Text]
		if !ok {
			stats.SkippedNoWord++
			continue
		}
		reading, err := kana.ToCanonicalReading(it.Reading)
		if err != nil {
			log.Warn().Err(err).Str("word", it.Text).Msg("skipping furigana item")
			stats.SkippedBadReading++
			continue
		}
		readingID, ok := readings[db.ReadingKey{WordID: word.ID, Reading: reading}]
		if !ok {
			stats.SkippedNoReading++
			continue
		}
		if _, ok := claimed[readingID]; ok {
			stats.SkippedClaimed++
			continue
		}

		queued := 0
		for _, seg := range it.Furigana {
			if seg.Ruby == "" || seg.Rt == "" {
				continue
			}
			rt, err := kana.ToCanonicalReading(seg.Rt)
			if err != nil {
				log.Warn().Err(err).Str("word", it.Text).Str("ruby", seg.Ruby).Msg("skipping furigana segment")
				stats.SegmentsSkipped++
				continue
			}
			part := db.WordPart{Part: seg.Ruby, Reading: rt}
			if _, ok := seen[part]; !ok {
				seen[part] = struct{}{}
				vocab = append(vocab, part)
			}
			pending = append(pending, pendingLink{readingID: readingID, part: part})
			queued++
		}
		if queued == 0 {
			stats.SkippedNoSegments++
			continue
		}
		claimed[readingID] = struct{}{}
		stats.Claimed++
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = db.DefaultBatchSize
	}

	stats.PartsCreated, err = db.BulkInsertWordParts(ctx, ex, vocab, batch)
	if err != nil {
		return stats, err
	}
	parts, err := db.LoadWordPartIndex(ctx, ex)
	if err != nil {
		return stats, fmt.Errorf("load word part index: %w", err)
	}

	links := make([]db.ReadingPartLink, 0, len(pending))
	for _, p := range pending {
		partID, ok := parts[p.part]
		if !ok {
			return stats, fmt.Errorf("word part %s/%s missing after insert", p.part.Part, p.part.Reading)
		}
		links = append(links, db.ReadingPartLink{ReadingID: p.readingID, PartID: partID})
	}
	stats.LinksCreated, err = db.BulkLinkReadingParts(ctx, ex, links, batch)
	if err != nil {
		return stats, err
	}
	return stats, nil
}
