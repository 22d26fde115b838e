package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/kanjilab/pkg/db"
)

func (a *app) newLookupCmd() *cobra.Command {
	var examples int
	cmd := &cobra.Command{
		Use:   "lookup WORD",
		Short: "Show meanings, readings and furigana segments of a headword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openExisting()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			word, err := db.GetWord(ctx, store.DB, args[0])
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("%s: not in dictionary", args[0])
			}
			if err != nil {
				return err
			}
			readings, err := db.GetReadings(ctx, store.DB, word.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header := word.Word
			if word.Frequency.Valid {
				header += mutedStyle.Render(fmt.Sprintf("  #%d", word.Frequency.Int64))
			}
			fmt.Fprintln(out, titleStyle.Render(header))
			printMeanings(out, word.Meanings)

			for _, r := range readings {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("reading"), r.Reading)
				parts, err := db.GetReadingParts(ctx, store.DB, r.ID)
				if err != nil {
					return err
				}
				for _, p := range parts {
					fmt.Fprintf(out, "  %s → %s\n", p.Part, p.Reading)
					exs, err := db.GetPartExamples(ctx, store.DB, p.ID, r.ID, examples)
					if err != nil {
						return err
					}
					for _, ex := range exs {
						fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("      %s (%s)", ex.Word, ex.Reading)))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&examples, "examples", 3, "other words to show per furigana segment")
	return cmd
}

func printMeanings(w io.Writer, meanings string) {
	n := 0
	for i, block := range db.SplitMeanings(meanings) {
		if i > 0 {
			fmt.Fprintln(w, mutedStyle.Render("  ---"))
		}
		for _, glosses := range block {
			n++
			fmt.Fprintf(w, "  %d. %s\n", n, strings.Join(glosses, "; "))
		}
	}
}
