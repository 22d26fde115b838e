package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/kanjilab/pkg/ingest"
	"github.com/japaniel/kanjilab/pkg/readerer"
)

func (a *app) newAnnotateCmd() *cobra.Command {
	var (
		urls    []string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "annotate [TEXT]",
		Short: "Tokenize Japanese text and match its kanji words against the database",
		Long: `annotate reads TEXT, the articles at --url, or stdin, splits it into
words and prints the dictionary reading, frequency rank and furigana
segments of every word written with kanji.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var docs []document
			switch {
			case len(urls) > 0:
				f := ingest.NewFetcher()
				f.Workers = workers
				results, err := f.FetchAll(ctx, urls)
				if err != nil {
					a.log.Warn().Err(err).Msg("some pages could not be fetched")
				}
				for _, r := range results {
					if r.Article != nil {
						docs = append(docs, document{title: r.Article.Title, text: r.Article.Text})
					}
				}
				if len(docs) == 0 {
					return fmt.Errorf("no page could be fetched: %w", err)
				}
			case len(args) == 1:
				docs = []document{{text: args[0]}}
			default:
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				docs = []document{{text: string(b)}}
			}
			if len(docs) == 1 && strings.TrimSpace(docs[0].text) == "" {
				return fmt.Errorf("no text to annotate")
			}

			store, err := a.openExisting()
			if err != nil {
				return err
			}
			defer store.Close()

			analyzer, err := readerer.NewAnalyzer()
			if err != nil {
				return err
			}
			annotator := readerer.NewAnnotator(analyzer, store.DB)
			out := cmd.OutOrStdout()
			for _, doc := range docs {
				if doc.title != "" {
					fmt.Fprintln(out, titleStyle.Render(doc.title))
				}
				anns, err := annotator.Annotate(ctx, doc.text)
				if err != nil {
					return err
				}
				printAnnotations(out, anns)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&urls, "url", nil, "fetch and annotate the main text of this web page (repeatable)")
	cmd.Flags().IntVar(&workers, "workers", 4, "pages fetched at a time")
	return cmd
}

type document struct {
	title string
	text  string
}

func printAnnotations(out io.Writer, anns []readerer.Annotation) {
	for _, ann := range anns {
		if ann.Word == nil {
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%s\t%s\t(unknown)", ann.Surface, ann.Hiragana)))
			continue
		}
		line := fmt.Sprintf("%s\t%s\t%s", labelStyle.Render(ann.Surface), ann.Hiragana, ann.Word.Word)
		if ann.Word.Frequency.Valid {
			line += fmt.Sprintf("\t#%d", ann.Word.Frequency.Int64)
		}
		var segs []string
		for _, p := range ann.Parts {
			segs = append(segs, p.Part+"("+p.Reading+")")
		}
		if len(segs) > 0 {
			line += "\t" + strings.Join(segs, " ")
		}
		fmt.Fprintln(out, line)
	}
}
