package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/pipeline"
)

func (a *app) newBuildCmd() *cobra.Command {
	var (
		lexicon, furigana, frequency string
		fresh                        bool
		excludeTags, filterTags      []string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Load the lexicon, furigana and frequency sources into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("lexicon") {
				cfg.LexiconPath = lexicon
			}
			if flags.Changed("furigana") {
				cfg.FuriganaPath = furigana
			}
			if flags.Changed("frequency") {
				cfg.FrequencyPath = frequency
			}
			if flags.Changed("fresh") {
				cfg.Fresh = fresh
			}
			if flags.Changed("exclude-tag") {
				cfg.Lexicon.ExcludeTags = excludeTags
			}
			if flags.Changed("filter-tag") {
				cfg.Lexicon.FilterTags = filterTags
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Fresh {
				if err := removeDatabase(cfg.DBPath); err != nil {
					return err
				}
				a.log.Info().Str("path", cfg.DBPath).Msg("removed existing database")
			}

			store, err := db.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			builder, err := pipeline.New(cfg, store)
			if err != nil {
				return err
			}
			report, err := builder.Run(cmd.Context())
			out := cmd.OutOrStdout()
			printReport(out, report)

			var stageErr *pipeline.StageError
			if errors.As(err, &stageErr) {
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("stage %d (%s) failed", stageErr.Index, stageErr.Name)))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&lexicon, "lexicon", "", "JMdict XML or jmdict-simplified JSON (.gz/.zst accepted)")
	f.StringVar(&furigana, "furigana", "", "JmdictFurigana JSON")
	f.StringVar(&frequency, "frequency", "", "frequency list JSON")
	f.BoolVar(&fresh, "fresh", false, "delete the database before building")
	f.StringSliceVar(&excludeTags, "exclude-tag", nil, "drop entries carrying this tag (repeatable)")
	f.StringSliceVar(&filterTags, "filter-tag", nil, "keep only entries carrying this tag (repeatable)")
	return cmd
}

// removeDatabase deletes the SQLite file and its WAL side files.
func removeDatabase(path string) error {
	if path == ":memory:" {
		return nil
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func printReport(w io.Writer, report *pipeline.Report) {
	if report == nil || len(report.Stages) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Build report"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTAGE\tPROCESSED\tSKIPPED\tWRITTEN\tTOOK\tDETAILS")
	for _, s := range report.Stages {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			s.Index, s.Name, s.Result.Processed, s.Result.Skipped, s.Result.Written,
			s.Duration.Round(1e6), formatCounters(s.Result.Counters))
	}
	tw.Flush()

	c := report.Counts
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("words=%d readings=%d parts=%d links=%d", c.Words, c.Readings, c.WordParts, c.Links)))
}

func formatCounters(counters map[string]int) string {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counters[k]))
	}
	return strings.Join(parts, " ")
}
