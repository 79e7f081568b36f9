package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// MatchingStrategy selects how multi-term queries are matched.
type MatchingStrategy string

const (
	// MatchFrequency makes the rarest term mandatory and the others optional.
	MatchFrequency MatchingStrategy = "frequency"
	// MatchLast makes the final term mandatory and the others optional.
	MatchLast MatchingStrategy = "last"
	// MatchAll makes every term mandatory.
	MatchAll MatchingStrategy = "all"
)

const (
	// DefaultScoreThreshold is the default minimum ranking score
	DefaultScoreThreshold = 0.2

	// minWindow is the smallest page fetched while filtering by threshold
	minWindow = 100
)

// ParseMatchingStrategy validates a strategy name. Empty selects MatchFrequency.
func ParseMatchingStrategy(s string) (MatchingStrategy, error) {
	switch MatchingStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchFrequency:
		return MatchFrequency, nil
	case MatchLast:
		return MatchLast, nil
	case MatchAll:
		return MatchAll, nil
	default:
		return "", fmt.Errorf("unknown matching strategy %q (want frequency, last or all)", s)
	}
}

// SearchRequest describes an index search.
type SearchRequest struct {
	Query          string
	Languages      []string
	TopK           int
	Strategy       MatchingStrategy
	ScoreThreshold float64
}

// Search runs a text search and returns at most TopK documents ordered by
// stars per day, descending. Text relevance only decides inclusion: a hit's
// ranking score is its relevance relative to the best hit, and hits scoring
// below ScoreThreshold are dropped.
func (i *Index) Search(ctx context.Context, req SearchRequest) ([]domain.RepositoryDocument, error) {
	if req.TopK <= 0 {
		return []domain.RepositoryDocument{}, nil
	}
	if req.ScoreThreshold < 0 || req.ScoreThreshold > 1 {
		return nil, fmt.Errorf("score threshold %v out of range [0,1]", req.ScoreThreshold)
	}
	strategy, err := ParseMatchingStrategy(string(req.Strategy))
	if err != nil {
		return nil, err
	}

	q, err := i.buildQuery(ctx, req.Query, req.Languages, strategy)
	if err != nil {
		return nil, err
	}

	window := max(req.TopK*4, minWindow)
	results := make([]domain.RepositoryDocument, 0, req.TopK)

	for from := 0; len(results) < req.TopK; {
		sreq := bleve.NewSearchRequestOptions(q, window, from, false)
		sreq.Fields = []string{"*"}
		sreq.SortBy([]string{"-" + domain.RepoFieldStarsPerDay, domain.RepoFieldID})

		res, err := i.index.SearchInContext(ctx, sreq)
		if err != nil {
			return nil, fmt.Errorf("%w: search failed: %v", domain.ErrIndexUnavailable, err)
		}
		if len(res.Hits) == 0 || res.MaxScore <= 0 {
			break
		}

		for _, hit := range res.Hits {
			score := min(hit.Score/res.MaxScore, 1)
			if score < req.ScoreThreshold {
				continue
			}
			doc, err := decodeHit(hit)
			if err != nil {
				return nil, err
			}
			doc.RankingScore = score
			results = append(results, doc)
			if len(results) == req.TopK {
				break
			}
		}

		from += len(res.Hits)
		if len(res.Hits) < window || uint64(from) >= res.Total {
			break
		}
	}

	return results, nil
}

// buildQuery constructs the bleve query for a text and language filter.
func (i *Index) buildQuery(ctx context.Context, text string, languages []string, strategy MatchingStrategy) (query.Query, error) {
	terms := i.terms(text)

	var textQuery query.Query
	switch {
	case len(terms) == 0:
		textQuery = bleve.NewMatchAllQuery()
	case len(terms) == 1:
		textQuery = termQuery(terms[0])
	case strategy == MatchAll:
		qs := make([]query.Query, len(terms))
		for n, t := range terms {
			qs[n] = termQuery(t)
		}
		textQuery = bleve.NewConjunctionQuery(qs...)
	case strategy == MatchLast:
		textQuery = requireOne(terms, len(terms)-1)
	default:
		rarest, err := i.rarestTerm(ctx, terms)
		if err != nil {
			return nil, err
		}
		textQuery = requireOne(terms, rarest)
	}

	if len(languages) == 0 {
		return textQuery, nil
	}

	langs := make([]query.Query, 0, len(languages))
	for _, lang := range languages {
		tq := bleve.NewTermQuery(lang)
		tq.SetField(domain.RepoFieldLanguage)
		// Filter only: the language term must not add to text relevance
		tq.SetBoost(0)
		langs = append(langs, tq)
	}
	return bleve.NewConjunctionQuery(textQuery, bleve.NewDisjunctionQuery(langs...)), nil
}

// terms splits text with the index's analyzer and drops duplicates, keeping
// the original order.
func (i *Index) terms(text string) []string {
	var raw []string
	if analyzer := i.index.Mapping().AnalyzerNamed(standard.Name); analyzer != nil {
		for _, tok := range analyzer.Analyze([]byte(text)) {
			raw = append(raw, string(tok.Term))
		}
	}
	// Stop-word only queries still match on their words
	if len(raw) == 0 {
		raw = strings.Fields(strings.ToLower(text))
	}

	seen := make(map[string]bool, len(raw))
	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// rarestTerm returns the position of the term matching the fewest documents.
// Ties keep the earlier term.
func (i *Index) rarestTerm(ctx context.Context, terms []string) (int, error) {
	best, bestCount := 0, uint64(0)
	for n, t := range terms {
		req := bleve.NewSearchRequestOptions(termQuery(t), 0, 0, false)
		res, err := i.index.SearchInContext(ctx, req)
		if err != nil {
			return 0, fmt.Errorf("%w: term frequency lookup failed: %v", domain.ErrIndexUnavailable, err)
		}
		if n == 0 || res.Total < bestCount {
			best, bestCount = n, res.Total
		}
	}
	return best, nil
}

// termQuery matches one term against every searchable field, weighted by
// field importance.
func termQuery(term string) query.Query {
	qs := make([]query.Query, 0, len(searchableFields))
	for _, f := range searchableFields {
		mq := bleve.NewMatchQuery(term)
		mq.SetField(f.name)
		mq.SetBoost(f.boost)
		qs = append(qs, mq)
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// requireOne makes the term at position must mandatory and the rest optional.
// Optional terms still raise the score of documents that contain them.
func requireOne(terms []string, must int) query.Query {
	bq := bleve.NewBooleanQuery()
	bq.AddMust(termQuery(terms[must]))
	for n, t := range terms {
		if n != must {
			bq.AddShould(termQuery(t))
		}
	}
	return bq
}
