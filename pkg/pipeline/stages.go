package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/japaniel/kanjilab/pkg/config"
	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/dictionary"
	"github.com/japaniel/kanjilab/pkg/frequency"
	"github.com/japaniel/kanjilab/pkg/furigana"
)

// LexiconStage imports JMdict entries into words and readings.
type LexiconStage struct {
	Path       string
	Dictionary string
	Options    dictionary.Options

	entries []dictionary.Entry
}

func (s *LexiconStage) Name() string { return "JMDict" }

func (s *LexiconStage) Load(ctx context.Context) error {
	entries, err := dictionary.LoadLexicon(s.Path)
	if err != nil {
		return err
	}
	s.entries = entries
	return nil
}

func (s *LexiconStage) Process(ctx context.Context, tx db.DBExecutor) (Result, error) {
	d, err := db.GetDictionary(ctx, tx, s.Dictionary)
	if err != nil {
		return Result{}, err
	}
	stats, err := dictionary.NewImporter(d.ID, s.Options).Import(ctx, tx, s.entries)
	if err != nil {
		return Result{}, err
	}
	s.entries = nil
	return Result{
		Processed: stats.Entries,
		Skipped:   stats.Filtered,
		Written:   stats.WordsInserted + stats.WordsUpdated + stats.ReadingsInserted,
		Counters: map[string]int{
			"words_inserted":    stats.WordsInserted,
			"words_updated":     stats.WordsUpdated,
			"readings_inserted": stats.ReadingsInserted,
			"readings_skipped":  stats.ReadingsSkipped,
		},
	}, nil
}

// FuriganaStage links furigana segments to existing readings.
type FuriganaStage struct {
	Path   string
	Linker furigana.Linker

	items []furigana.Item
}

func (s *FuriganaStage) Name() string { return "JMDict Furigana" }

func (s *FuriganaStage) Load(ctx context.Context) error {
	items, err := furigana.Load(s.Path)
	if err != nil {
		return err
	}
	s.items = items
	return nil
}

func (s *FuriganaStage) Process(ctx context.Context, tx db.DBExecutor) (Result, error) {
	stats, err := s.Linker.Link(ctx, tx, s.items)
	if err != nil {
		return Result{}, err
	}
	s.items = nil
	return Result{
		Processed: stats.Items,
		Skipped:   stats.Skipped(),
		Written:   stats.PartsCreated + stats.LinksCreated,
		Counters: map[string]int{
			"claimed":          stats.Claimed,
			"no_word":          stats.SkippedNoWord,
			"no_reading":       stats.SkippedNoReading,
			"bad_reading":      stats.SkippedBadReading,
			"already_claimed":  stats.SkippedClaimed,
			"no_segments":      stats.SkippedNoSegments,
			"segments_skipped": stats.SegmentsSkipped,
			"parts_created":    stats.PartsCreated,
			"links_created":    stats.LinksCreated,
		},
	}, nil
}

// FrequencyStage lowers word frequencies to the best observed rank.
type FrequencyStage struct {
	Path   string
	Merger frequency.Merger

	records []json.RawMessage
}

func (s *FrequencyStage) Name() string { return "Word Frequency" }

func (s *FrequencyStage) Load(ctx context.Context) error {
	records, err := frequency.Load(s.Path)
	if err != nil {
		return err
	}
	s.records = records
	return nil
}

func (s *FrequencyStage) Process(ctx context.Context, tx db.DBExecutor) (Result, error) {
	stats, err := s.Merger.Merge(ctx, tx, s.records)
	if err != nil {
		return Result{}, err
	}
	s.records = nil
	return Result{
		Processed: stats.Records,
		Skipped:   stats.Skipped(),
		Written:   stats.Updated,
		Counters: map[string]int{
			"corrupted": stats.Corrupted,
			"malformed": stats.Malformed,
			"unmatched": stats.Unmatched,
			"unchanged": stats.Unchanged,
		},
	}, nil
}

// New builds the Lexicon → Furigana → Frequency pipeline described by cfg.
func New(cfg *config.Config, store *db.Store) (*Builder, error) {
	stats, err := cfg.Dictionary.StatsJSON()
	if err != nil {
		return nil, fmt.Errorf("dictionary stats: %w", err)
	}
	return &Builder{
		Store: store,
		Dictionary: db.Dictionary{
			Name:        cfg.Dictionary.Name,
			GUID:        cfg.Dictionary.GUID,
			StatsConfig: stats,
			Description: cfg.Dictionary.Description,
		},
		Stages: []Stage{
			&LexiconStage{
				Path:       cfg.LexiconPath,
				Dictionary: cfg.Dictionary.Name,
				Options: dictionary.Options{
					FilterTags:          cfg.Lexicon.FilterTags,
					ExcludeTags:         cfg.Lexicon.ExcludeTags,
					SkipNoKanjiReadings: cfg.Lexicon.SkipNoKanjiReadings,
					ProgressEvery:       cfg.ProgressEvery,
				},
			},
			&FuriganaStage{
				Path:   cfg.FuriganaPath,
				Linker: furigana.Linker{BatchSize: cfg.BatchSize, ProgressEvery: cfg.ProgressEvery},
			},
			&FrequencyStage{
				Path:   cfg.FrequencyPath,
				Merger: frequency.Merger{ProgressEvery: cfg.ProgressEvery},
			},
		},
	}, nil
}
