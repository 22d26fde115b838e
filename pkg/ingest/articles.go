package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/japaniel/kanjilab/pkg/logging"
	"github.com/japaniel/kanjilab/pkg/readerer"
)

// Fetched is the outcome of fetching one page.
type Fetched struct {
	URL     string
	Article *readerer.Article
	Err     error
}

// Fetcher downloads articles with bounded concurrency.
type Fetcher struct {
	Client  *http.Client
	Workers int
}

// NewFetcher returns a fetcher running four requests at a time.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		Workers: 4,
	}
}

// FetchAll fetches every URL and returns one result per URL in input
// order. The error joins the individual failures; results for pages that
// succeeded are still returned alongside it.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]Fetched, error) {
	log := logging.FromContext(ctx)
	results := make([]Fetched, len(urls))

	pool := NewWorkerPool(f.Workers, len(urls))
	pool.Start(ctx)
	for i, u := range urls {
		results[i].URL = u
		err := pool.Submit(ctx, func(ctx context.Context) error {
			start := time.Now()
			article, err := readerer.FetchArticle(ctx, f.Client, u)
			if err != nil {
				results[i].Err = err
				return fmt.Errorf("%s: %w", u, err)
			}
			results[i].Article = article
			log.Debug().Str("url", u).Str("title", article.Title).
				Dur("took", time.Since(start)).Msg("fetched article")
			return nil
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
	}
	err := pool.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return results, err
}
