// Package ingest enumerates active repositories on the platform and writes
// them into the search index.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
	"github.com/sha1n/mcp-repo-radar/internal/platform"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default number of partitions fetched concurrently
const DefaultWorkers = 5

// Searcher runs repository searches against the platform.
type Searcher interface {
	SearchRepositories(ctx context.Context, query string, opts platform.SearchOptions) (*platform.SearchResult, error)
}

// Upserter writes documents into the index, overwriting by id.
type Upserter interface {
	Upsert(ctx context.Context, docs []domain.RepositoryDocument) (int, error)
}

// Fetcher executes partition queries concurrently and indexes the results.
type Fetcher struct {
	searcher Searcher
	store    Upserter
	filter   *QualityFilter
	workers  int
	now      func() time.Time
}

// NewFetcher creates a fetcher running at most workers partitions at once.
func NewFetcher(searcher Searcher, store Upserter, filter *QualityFilter, workers int) *Fetcher {
	if filter == nil {
		filter = NewQualityFilter()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fetcher{
		searcher: searcher,
		store:    store,
		filter:   filter,
		workers:  workers,
		now:      time.Now,
	}
}

// Run executes every query and returns a report. A failing partition is
// logged and recorded in the report; it never stops the other partitions
// and is not retried. The run itself does not return an error.
func (f *Fetcher) Run(ctx context.Context, parts []Partition) *Report {
	report := &Report{
		RunID:      uuid.NewString(),
		StartedAt:  f.now(),
		Partitions: make([]PartitionResult, len(parts)),
	}
	logger := slog.With("run_id", report.RunID)
	logger.Info("Ingestion started", "partitions", len(parts), "workers", f.workers)

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, part := range parts {
		g.Go(func() error {
			report.Partitions[i] = f.runPartition(ctx, logger, part)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = f.now()
	t := report.Totals()
	logger.Info("Ingestion finished",
		"duration", report.FinishedAt.Sub(report.StartedAt),
		"fetched", t.Fetched,
		"rejected", t.Rejected,
		"indexed", t.Indexed,
		"failed", t.Failed,
		"overflowed", t.Overflowed,
	)
	return report
}

// runPartition owns one partition end to end: query, filter, shape, upsert.
func (f *Fetcher) runPartition(ctx context.Context, logger *slog.Logger, part Partition) PartitionResult {
	start := f.now()
	query := part.Query
	res := PartitionResult{Range: part.Range, Query: query}

	sr, err := f.searcher.SearchRepositories(ctx, query, platform.SearchOptions{Limit: platform.MaxSearchResults})
	if err != nil {
		res.Err = &domain.PartitionError{Query: query, Stage: domain.StageFetch, Err: err}
		logger.Error("Partition fetch failed", "query", query, "rate_limited", domain.IsRateLimited(err), "error", err)
		res.Duration = f.now().Sub(start)
		return res
	}

	res.Total = sr.Total
	res.Fetched = len(sr.Records)
	if sr.Overflowed() {
		res.Overflowed = true
		logger.Warn("Partition exceeds the per-query result cap, some repositories are not covered",
			"query", query, "total", sr.Total, "cap", platform.MaxSearchResults)
	}

	now := f.now()
	docs := make([]domain.RepositoryDocument, 0, len(sr.Records))
	for _, raw := range sr.Records {
		if !f.filter.Accept(raw) {
			res.Rejected++
			logger.Debug("Rejected low quality repository", "full_name", raw.FullName(), "query", query)
			continue
		}
		docs = append(docs, domain.NewRepositoryDocument(raw, now))
	}

	written, err := f.store.Upsert(ctx, docs)
	res.Indexed = written
	if err != nil {
		res.Err = &domain.PartitionError{Query: query, Stage: domain.StageUpsert, Err: err}
		logger.Error("Partition upsert failed", "query", query, "written", written, "error", err)
		res.Duration = f.now().Sub(start)
		return res
	}

	logger.Info("Partition indexed", "query", query, "total", sr.Total, "fetched", res.Fetched,
		"rejected", res.Rejected, "indexed", res.Indexed)
	res.Duration = f.now().Sub(start)
	return res
}
