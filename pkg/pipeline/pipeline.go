// Package pipeline runs the build stages against one store: every source is
// loaded first, then each stage processes and commits in its own
// transaction.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/logging"
)

// Stage is one build phase consuming one external source.
type Stage interface {
	Name() string
	// Load reads and decodes the source. It must not touch the store.
	Load(ctx context.Context) error
	// Process applies the loaded source inside the stage transaction.
	Process(ctx context.Context, tx db.DBExecutor) (Result, error)
}

// Result is what a stage reports after committing.
type Result struct {
	Processed int
	Skipped   int
	Written   int
	// Counters holds stage-specific counts keyed by name.
	Counters map[string]int
}

// StageError reports the stage a run stopped at. Index is 1-based.
type StageError struct {
	Index int
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageReport describes one committed stage.
type StageReport struct {
	Index    int
	Name     string
	Result   Result
	Duration time.Duration
}

// Report describes a run. On failure it holds the stages committed before
// the failing one.
type Report struct {
	DictionaryID int64
	Stages       []StageReport
	Counts       db.Counts
}

// Builder sequences stages over a store it does not own.
type Builder struct {
	Store      *db.Store
	Dictionary db.Dictionary
	Stages     []Stage
}

// Run loads every source, initializes the schema and dictionary row, then
// processes the stages in order. A failing stage is rolled back and the
// remaining stages are not run; earlier stages stay committed.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	log := logging.FromContext(ctx)
	report := &Report{}

	for i, st := range b.Stages {
		start := time.Now()
		log.Info().Str("stage", st.Name()).Msg("loading source")
		if err := st.Load(ctx); err != nil {
			return report, &StageError{Index: i + 1, Name: st.Name(), Err: err}
		}
		log.Debug().Str("stage", st.Name()).Dur("took", time.Since(start)).Msg("source loaded")
	}

	err := b.Store.InTx(ctx, func(tx *sql.Tx) error {
		if err := db.InitDB(ctx, tx); err != nil {
			return err
		}
		id, err := db.UpsertDictionary(ctx, tx, b.Dictionary)
		if err != nil {
			return err
		}
		report.DictionaryID = id
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("initialize store: %w", err)
	}

	for i, st := range b.Stages {
		start := time.Now()
		stageLog := log.With().Int("index", i+1).Str("stage", st.Name()).Logger()
		stageLog.Info().Msg("starting stage")

		var res Result
		err := b.Store.InTx(ctx, func(tx *sql.Tx) error {
			var err error
			res, err = st.Process(logging.WithLogger(ctx, &stageLog), tx)
			return err
		})
		if err != nil {
			stageLog.Error().Err(err).Msg("stage failed, rolled back")
			// Counts reflect the stages that stayed committed.
			if counts, cerr := db.CountRows(ctx, b.Store.DB); cerr == nil {
				report.Counts = counts
			} else {
				log.Warn().Err(cerr).Msg("count rows after failed stage")
			}
			return report, &StageError{Index: i + 1, Name: st.Name(), Err: err}
		}

		took := time.Since(start)
		stageLog.Info().
			Int("processed", res.Processed).
			Int("skipped", res.Skipped).
			Int("written", res.Written).
			Dur("took", took).
			Msg("stage committed")
		report.Stages = append(report.Stages, StageReport{Index: i + 1, Name: st.Name(), Result: res, Duration: took})
	}

	counts, err := db.CountRows(ctx, b.Store.DB)
	if err != nil {
		return report, fmt.Errorf("count rows: %w", err)
	}
	report.Counts = counts
	return report, nil
}
