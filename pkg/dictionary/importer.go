package dictionary

import (
	"context"
	"fmt"
	"slices"

	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/kana"
	"github.com/japaniel/kanjilab/pkg/logging"
)

// Options tunes which entries and readings are imported.
type Options struct {
	// FilterTags keeps only entries carrying at least one of these codes.
	FilterTags []string
	// ExcludeTags drops entries carrying any of these codes.
	ExcludeTags []string
	// SkipNoKanjiReadings drops readings flagged re_nokanji.
	SkipNoKanjiReadings bool
	// ProgressEvery logs progress every n entries; 0 disables it.
	ProgressEvery int
}

// ImportStats counts what an import did.
type ImportStats struct {
	Entries          int
	Filtered         int
	WordsInserted    int
	WordsUpdated     int
	ReadingsInserted int
	ReadingsSkipped  int
}

// Importer reconciles JMdict entries into word and word_reading rows.
// It caches the word table in memory, so one Importer must be the only
// writer of that table while it runs.
type Importer struct {
	dictionaryID int64
	opts         Options
	words        map[string]db.WordRef
}

// NewImporter creates an importer writing words owned by dictionaryID.
func NewImporter(dictionaryID int64, opts Options) *Importer {
	return &Importer{dictionaryID: dictionaryID, opts: opts}
}

// Import reconciles entries in order. Re-running it over the same entries
// writes nothing new.
func (im *Importer) Import(ctx context.Context, ex db.DBExecutor, entries []Entry) (ImportStats, error) {
	log := logging.FromContext(ctx)
	var stats ImportStats

	if im.words == nil {
		idx, err := db.LoadWordIndex(ctx, ex)
		if err != nil {
			return stats, fmt.Errorf("load word index: %w", err)
		}
		im.words = idx
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Entries++
		if !im.accept(e) {
			stats.Filtered++
			continue
		}
		if err := im.importEntry(ctx, ex, e, &stats); err != nil {
			return stats, fmt.Errorf("entry %d: %w", e.Seq, err)
		}
		if n := im.opts.ProgressEvery; n > 0 && (i+1)%n == 0 {
			log.Info().Int("entries", i+1).Int("words", stats.WordsInserted).Msg("lexicon progress")
		}
	}
	return stats, nil
}

func (im *Importer) accept(e Entry) bool {
	if len(im.opts.FilterTags) == 0 && len(im.opts.ExcludeTags) == 0 {
		return true
	}
	tags := e.Tags()
	for _, t := range tags {
		if slices.Contains(im.opts.ExcludeTags, t) {
			return false
		}
	}
	if len(im.opts.FilterTags) == 0 {
		return true
	}
	for _, t := range tags {
		if slices.Contains(im.opts.FilterTags, t) {
			return true
		}
	}
	return false
}

func (im *Importer) importEntry(ctx context.Context, ex db.DBExecutor, e Entry, stats *ImportStats) error {
	var headwords []string
	for _, k := range e.Kanji {
		if kana.IsKanjiBearing(k.Text) && !slices.Contains(headwords, k.Text) {
			headwords = append(headwords, k.Text)
		}
	}
	if len(headwords) == 0 {
		return nil
	}

	// Sense blocks per headword, in sense order. A sense with stagk applies
	// only to the headwords it names.
	senses := make(map[string][]string, len(headwords))
	for _, s := range e.Senses {
		glosses := make([]string, 0, len(s.Glosses))
		for _, g := range s.Glosses {
			if g.English() {
				glosses = append(glosses, g.Text)
			}
		}
		if len(glosses) == 0 {
			continue
		}
		block := db.SenseBlock(glosses)
		for _, hw := range headwords {
			if len(s.RestrictKanji) > 0 && !slices.Contains(s.RestrictKanji, hw) {
				continue
			}
			senses[hw] = append(senses[hw], block)
		}
	}

	// Headwords no sense applies to get neither a Word nor readings.
	ids := make(map[string]int64, len(headwords))
	for _, hw := range headwords {
		if len(senses[hw]) == 0 {
			continue
		}
		id, err := im.upsertWord(ctx, ex, hw, db.EntryBlock(senses[hw]), stats)
		if err != nil {
			return err
		}
		ids[hw] = id
	}

	log := logging.FromContext(ctx)
	for _, r := range e.Readings {
		if r.Text == "" {
			continue
		}
		if im.opts.SkipNoKanjiReadings && r.IsNoKanji() {
			stats.ReadingsSkipped++
			continue
		}
		reading, err := kana.ToCanonicalReading(r.Text)
		if err != nil {
			log.Warn().Err(err).Int("entry", e.Seq).Msg("skipping reading")
			stats.ReadingsSkipped++
			continue
		}
		for _, hw := range headwords {
			id, ok := ids[hw]
			if !ok {
				continue
			}
			if len(r.Restrict) > 0 && !slices.Contains(r.Restrict, hw) {
				continue
			}
			if len(r.SenseRestrict) > 0 && !slices.Contains(r.SenseRestrict, hw) {
				continue
			}
			created, err := db.InsertReading(ctx, ex, id, reading)
			if err != nil {
				return err
			}
			if created {
				stats.ReadingsInserted++
			}
		}
	}
	return nil
}

// upsertWord creates the word with block as its meanings, or appends block
// to an existing word unless it is already present.
func (im *Importer) upsertWord(ctx context.Context, ex db.DBExecutor, word, block string, stats *ImportStats) (int64, error) {
	ref, ok := im.words[word]
	if !ok {
		id, err := db.InsertWord(ctx, ex, word, block, im.dictionaryID)
		if err != nil {
			return 0, err
		}
		im.words[word] = db.WordRef{ID: id, Meanings: block}
		stats.WordsInserted++
		return id, nil
	}

	meanings, changed := db.AppendMeaningBlock(ref.Meanings, block)
	if !changed {
		return ref.ID, nil
	}
	if err := db.UpdateWordMeanings(ctx, ex, ref.ID, meanings); err != nil {
		return 0, err
	}
	ref.Meanings = meanings
	im.words[word] = ref
	stats.WordsUpdated++
	return ref.ID, nil
}
