package retrieve

import (
	"slices"

	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// LiveScore is the ranking score given to every live search result. Live
// results carry no relevance signal comparable to index scores.
const LiveScore = 0.5

// Shares splits a result budget k into the index share ceil(0.7k) and the
// live share floor(0.3k).
func Shares(k int) (local, live int) {
	if k <= 0 {
		return 0, 0
	}
	return (7*k + 9) / 10, (3 * k) / 10
}

// Merge concatenates index and live documents, orders them by ranking score
// descending, keeps the first occurrence of each id and truncates to k.
// Index documents come first so that they win ties against live documents.
func Merge(indexDocs, liveDocs []domain.RepositoryDocument, k int) []domain.RepositoryDocument {
	if k <= 0 {
		return []domain.RepositoryDocument{}
	}
	all := make([]domain.RepositoryDocument, 0, len(indexDocs)+len(liveDocs))
	all = append(all, indexDocs...)
	all = append(all, liveDocs...)

	slices.SortStableFunc(all, func(a, b domain.RepositoryDocument) int {
		switch {
		case a.RankingScore > b.RankingScore:
			return -1
		case a.RankingScore < b.RankingScore:
			return 1
		default:
			return 0
		}
	})

	seen := make(map[int64]struct{}, len(all))
	merged := make([]domain.RepositoryDocument, 0, min(k, len(all)))
	for _, doc := range all {
		if len(merged) == k {
			break
		}
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		merged = append(merged, doc)
	}
	return merged
}

// Views projects documents to caller-facing views, preserving order.
func Views(docs []domain.RepositoryDocument) []domain.RepositoryView {
	views := make([]domain.RepositoryView, len(docs))
	for i, d := range docs {
		views[i] = d.View()
	}
	return views
}
