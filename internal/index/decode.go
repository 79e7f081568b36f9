package index

import (
	"fmt"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2/search"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// decodeHit rebuilds a document from the stored fields of a search hit.
func decodeHit(hit *search.DocumentMatch) (domain.RepositoryDocument, error) {
	f := hit.Fields
	doc := domain.RepositoryDocument{}

	if v, ok := f[domain.RepoFieldID].(float64); ok {
		doc.ID = int64(v)
	} else {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			return doc, fmt.Errorf("document %q has no numeric id", hit.ID)
		}
		doc.ID = id
	}

	doc.FullName, _ = stringField(f, domain.RepoFieldFullName)
	if v, ok := stringField(f, domain.RepoFieldDescription); ok {
		doc.Description = &v
	}
	if v, ok := stringField(f, domain.RepoFieldLanguage); ok {
		doc.Language = &v
	}
	if v, ok := stringField(f, domain.RepoFieldHomepage); ok {
		doc.Homepage = &v
	}
	doc.Icon, _ = stringField(f, domain.RepoFieldIcon)

	if v, ok := f[domain.RepoFieldStars].(float64); ok {
		doc.Stars = int(v)
	}
	if v, ok := f[domain.RepoFieldStarsPerDay].(float64); ok {
		doc.StarsPerDay = v
	}
	if v, ok := f[domain.RepoFieldArchived].(bool); ok {
		doc.Archived = v
	}

	doc.Topics = stringsField(f, domain.RepoFieldTopics)
	doc.CreatedAt = dateField(f, domain.RepoFieldCreatedAt)
	doc.PushedAt = dateField(f, domain.RepoFieldPushedAt)

	return doc, nil
}

func stringField(f map[string]any, name string) (string, bool) {
	switch v := f[name].(type) {
	case string:
		return v, true
	case []any:
		if len(v) > 0 {
			s, ok := v[0].(string)
			return s, ok
		}
	}
	return "", false
}

// stringsField handles bleve returning a lone string for single-valued arrays.
func stringsField(f map[string]any, name string) []string {
	switch v := f[name].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func dateField(f map[string]any, name string) time.Time {
	s, ok := f[name].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, domain.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t)
		}
	}
	return time.Time{}
}
