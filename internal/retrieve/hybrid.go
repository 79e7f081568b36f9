// Package retrieve fuses local index results with live platform search
// results into a single ranked list.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sha1n/mcp-repo-radar/internal/config"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
	"github.com/sha1n/mcp-repo-radar/internal/index"
	"github.com/sha1n/mcp-repo-radar/internal/ingest"
	"github.com/sha1n/mcp-repo-radar/internal/platform"
	"golang.org/x/sync/errgroup"
)

// liveScope restricts live text matching to the indexed text fields
const liveScope = "in:name,description,topics"

// IndexSearcher searches the local index.
type IndexSearcher interface {
	Search(ctx context.Context, req index.SearchRequest) ([]domain.RepositoryDocument, error)
}

// LiveSearcher searches the platform directly.
type LiveSearcher interface {
	SearchRepositories(ctx context.Context, query string, opts platform.SearchOptions) (*platform.SearchResult, error)
}

// Query is a retrieval request. TopK <= 0 selects the configured default.
type Query struct {
	Text      string
	Languages []string
	TopK      int
}

// Retriever answers queries from the index and the live platform search.
type Retriever struct {
	index    IndexSearcher
	live     LiveSearcher
	filter   *ingest.QualityFilter
	settings config.SearchSettings
	strategy index.MatchingStrategy
	now      func() time.Time
}

// NewRetriever creates a retriever. A nil live searcher, or live search
// disabled in settings, makes the retriever index-only.
func NewRetriever(idx IndexSearcher, live LiveSearcher, settings config.SearchSettings) (*Retriever, error) {
	if idx == nil {
		return nil, errors.New("index searcher cannot be nil")
	}
	strategy, err := index.ParseMatchingStrategy(settings.MatchingStrategy)
	if err != nil {
		return nil, err
	}
	if !settings.LiveEnabled {
		live = nil
	}
	return &Retriever{
		index:    idx,
		live:     live,
		filter:   ingest.NewQualityFilter(),
		settings: settings,
		strategy: strategy,
		now:      time.Now,
	}, nil
}

// Search returns at most TopK repositories as caller-facing views.
func (r *Retriever) Search(ctx context.Context, q Query) ([]domain.RepositoryView, error) {
	docs, err := r.SearchDocuments(ctx, q)
	if err != nil {
		return nil, err
	}
	return Views(docs), nil
}

// SearchDocuments returns the merged documents with their ranking scores.
// Index and live searches run concurrently. A live failure or timeout
// degrades to index-only results; an index failure fails the query.
func (r *Retriever) SearchDocuments(ctx context.Context, q Query) ([]domain.RepositoryDocument, error) {
	k := q.TopK
	if k <= 0 {
		k = r.settings.TopK
	}
	localShare, liveShare := Shares(k)

	var indexDocs, liveDocs []domain.RepositoryDocument
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		docs, err := r.index.Search(gctx, index.SearchRequest{
			Query:          q.Text,
			Languages:      q.Languages,
			TopK:           localShare,
			Strategy:       r.strategy,
			ScoreThreshold: r.settings.ScoreThreshold,
		})
		if err != nil {
			return fmt.Errorf("index search: %w", err)
		}
		indexDocs = docs
		return nil
	})

	if r.live != nil && liveShare > 0 && strings.TrimSpace(q.Text) != "" {
		g.Go(func() error {
			docs, err := r.searchLive(gctx, q, liveShare)
			if err != nil {
				slog.Warn("Live search failed, returning index results only",
					"query", q.Text, "rate_limited", domain.IsRateLimited(err), "error", err)
				return nil
			}
			liveDocs = docs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(indexDocs, liveDocs, k)
	slog.Debug("Hybrid search", "query", q.Text, "languages", q.Languages, "top_k", k,
		"index_hits", len(indexDocs), "live_hits", len(liveDocs), "results", len(merged))
	return merged, nil
}

// searchLive queries the platform sorted by stars and keeps up to limit
// records that pass the quality filter and the language filter.
func (r *Retriever) searchLive(ctx context.Context, q Query, limit int) ([]domain.RepositoryDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, r.settings.LiveTimeout)
	defer cancel()

	res, err := r.live.SearchRepositories(ctx, LiveQuery(q.Text, q.Languages), platform.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		Limit: platform.MaxPerPage,
	})
	if err != nil {
		return nil, err
	}

	now := r.now()
	docs := make([]domain.RepositoryDocument, 0, limit)
	for _, raw := range res.Records {
		if len(docs) == limit {
			break
		}
		if !r.filter.Accept(raw) || !languageAllowed(raw, q.Languages) {
			continue
		}
		doc := domain.NewRepositoryDocument(raw, now)
		doc.RankingScore = LiveScore
		docs = append(docs, doc)
	}
	return docs, nil
}

// LiveQuery renders the platform search query for a text and language filter.
func LiveQuery(text string, languages []string) string {
	parts := []string{strings.TrimSpace(text), liveScope}
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, "language:"+quoteQualifier(l))
		}
	}
	return strings.Join(parts, " ")
}

// quoteQualifier quotes qualifier values containing spaces, such as "Jupyter Notebook".
func quoteQualifier(v string) string {
	if strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}
	return v
}

func languageAllowed(raw domain.RawRepository, languages []string) bool {
	if len(languages) == 0 {
		return true
	}
	lang, ok := raw.Language()
	return ok && slices.Contains(languages, lang)
}
