package ingest

import (
	"unicode/utf8"

	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// MaxDescriptionLength is the longest description accepted before a record
// is treated as spam.
const MaxDescriptionLength = 1024

// QualityFilter decides which raw records may enter the index.
type QualityFilter struct {
	maxDescription int
}

// NewQualityFilter creates a filter with the default description limit.
func NewQualityFilter() *QualityFilter {
	return &QualityFilter{maxDescription: MaxDescriptionLength}
}

// NewQualityFilterWithLimit creates a filter with a custom description limit.
func NewQualityFilterWithLimit(maxDescription int) *QualityFilter {
	return &QualityFilter{maxDescription: maxDescription}
}

// Accept reports whether the record passes the quality rules. A present
// description longer than the limit (in characters) is rejected; an absent
// description is accepted.
func (f *QualityFilter) Accept(raw domain.RawRepository) bool {
	desc, ok := raw.Description()
	if !ok {
		return true
	}
	return utf8.RuneCountInString(desc) <= f.maxDescription
}
