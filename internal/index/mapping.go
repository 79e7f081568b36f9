package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// searchField is a full-text field and its relevance weight.
type searchField struct {
	name  string
	boost float64
}

// searchableFields lists the full-text fields in descending importance.
var searchableFields = []searchField{
	{name: domain.RepoFieldFullName, boost: 4},
	{name: domain.RepoFieldDescription, boost: 3},
	{name: domain.RepoFieldTopics, boost: 2},
	{name: domain.RepoFieldLanguageText, boost: 1},
}

// FilterableFields lists the fields that support exact or range filters.
var FilterableFields = []string{
	domain.RepoFieldID,
	domain.RepoFieldLanguage,
	domain.RepoFieldStars,
	domain.RepoFieldArchived,
	domain.RepoFieldCreatedAt,
	domain.RepoFieldPushedAt,
}

// SortableFields lists the fields results can be ordered by.
var SortableFields = []string{
	domain.RepoFieldStars,
	domain.RepoFieldStarsPerDay,
}

// SearchableFields returns the full-text field names in descending importance.
func SearchableFields() []string {
	names := make([]string, len(searchableFields))
	for i, f := range searchableFields {
		names[i] = f.name
	}
	return names
}

// CreateIndexMapping creates the Bleve index mapping for repository documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	textField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = true
		f.IncludeTermVectors = true
		return f
	}

	docMapping.AddFieldMappingsAt(domain.RepoFieldFullName, textField())
	docMapping.AddFieldMappingsAt(domain.RepoFieldDescription, textField())
	docMapping.AddFieldMappingsAt(domain.RepoFieldTopics, textField())

	// Language is indexed twice: as a case-sensitive keyword for filtering
	// and as analyzed text for matching.
	langKeyword := bleve.NewTextFieldMapping()
	langKeyword.Analyzer = keyword.Name
	langKeyword.Store = true
	langText := bleve.NewTextFieldMapping()
	langText.Name = domain.RepoFieldLanguageText
	langText.Analyzer = standard.Name
	langText.Store = false
	docMapping.AddFieldMappingsAt(domain.RepoFieldLanguage, langKeyword, langText)

	for _, name := range []string{domain.RepoFieldID, domain.RepoFieldStars, domain.RepoFieldStarsPerDay} {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	archived := bleve.NewBooleanFieldMapping()
	archived.Store = true
	docMapping.AddFieldMappingsAt(domain.RepoFieldArchived, archived)

	for _, name := range []string{domain.RepoFieldCreatedAt, domain.RepoFieldPushedAt} {
		f := bleve.NewDateTimeFieldMapping()
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	// Display-only fields: stored, not searchable
	for _, name := range []string{domain.RepoFieldHomepage, domain.RepoFieldIcon} {
		f := bleve.NewTextFieldMapping()
		f.Index = false
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// toFields converts a document into the property map written to the index.
// Absent optional values are omitted rather than stored empty.
func toFields(doc domain.RepositoryDocument) map[string]any {
	fields := map[string]any{
		domain.RepoFieldID:          float64(doc.ID),
		domain.RepoFieldFullName:    doc.FullName,
		domain.RepoFieldStars:       float64(doc.Stars),
		domain.RepoFieldStarsPerDay: doc.StarsPerDay,
		domain.RepoFieldArchived:    doc.Archived,
	}
	if len(doc.Topics) > 0 {
		fields[domain.RepoFieldTopics] = doc.Topics
	}
	if doc.Description != nil {
		fields[domain.RepoFieldDescription] = *doc.Description
	}
	if doc.Language != nil {
		fields[domain.RepoFieldLanguage] = *doc.Language
	}
	if doc.Homepage != nil {
		fields[domain.RepoFieldHomepage] = *doc.Homepage
	}
	if doc.Icon != "" {
		fields[domain.RepoFieldIcon] = doc.Icon
	}
	if !doc.CreatedAt.IsZero() {
		fields[domain.RepoFieldCreatedAt] = doc.CreatedAt
	}
	if !doc.PushedAt.IsZero() {
		fields[domain.RepoFieldPushedAt] = doc.PushedAt
	}
	return fields
}
