package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/japaniel/kanjilab/pkg/dictionary"
)

func (a *app) newFetchCmd() *cobra.Command {
	var (
		dir        string
		simplified bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the JMdict and JmdictFurigana sources",
		Long: `fetch downloads JMdict_e.gz from EDRDG and the latest JmdictFurigana
release into --dir. Files already present are kept. The frequency list
has no public release and must be supplied separately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			ctx := cmd.Context()
			f := dictionary.NewFetcher()

			lexicon := filepath.Join(dir, "JMdict_e.gz")
			if err := f.EnsureURL(ctx, dictionary.JMdictURL, lexicon); err != nil {
				return err
			}
			furigana := filepath.Join(dir, "JmdictFurigana.json")
			if err := f.EnsureRelease(ctx, dictionary.FuriganaRelease, furigana); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, lexicon)
			fmt.Fprintln(out, furigana)

			if simplified {
				path := filepath.Join(dir, "jmdict-eng-common.json")
				if err := f.EnsureRelease(ctx, dictionary.SimplifiedRelease, path); err != nil {
					return err
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "data", "download directory")
	cmd.Flags().BoolVar(&simplified, "simplified", false, "also fetch the jmdict-simplified JSON lexicon")
	return cmd
}
