package domain

import (
	"time"
)

// DateLayout is the day-resolution layout used for repository dates.
const DateLayout = "2006-01-02"

// RawRepository is the minimal view of a platform repository record that the
// ingestion and retrieval paths consume. Optional values are reported with a
// presence flag so that a missing field can be carried as absent.
type RawRepository interface {
	ID() int64
	FullName() string
	Description() (string, bool)
	Language() (string, bool)
	Stars() int
	Homepage() (string, bool)
	CreatedAt() time.Time
	PushedAt() time.Time
	Archived() bool
	Topics() []string
	OwnerAvatarURL() string
}

// RepositoryDocument is the canonical repository record stored in the search
// index and returned from searches.
type RepositoryDocument struct {
	// ID is the platform-unique repository id and the index primary key.
	ID int64 `json:"id"`

	// FullName is "owner/name". Owners can rename, so it is not an identity key.
	FullName string `json:"full_name"`

	Description *string `json:"description,omitempty"`
	Language    *string `json:"language,omitempty"`
	Stars       int     `json:"stars"`

	// StarsPerDay is stars / (days since creation + 1), recomputed at every fetch.
	StarsPerDay float64 `json:"stars_per_day"`

	CreatedAt time.Time `json:"created_at"`
	PushedAt  time.Time `json:"pushed_at"`
	Archived  bool      `json:"archived"`
	Topics    []string  `json:"topics"`
	Homepage  *string   `json:"homepage,omitempty"`
	Icon      string    `json:"icon,omitempty"`

	// RankingScore is assigned at query time and never persisted.
	RankingScore float64 `json:"-"`
}

// RepositoryView is the caller-facing projection of a search result.
type RepositoryView struct {
	FullName    string   `json:"full_name"`
	Description *string  `json:"description"`
	Language    *string  `json:"language"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stars"`
	CreatedAt   string   `json:"created_at"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	RepoFieldID           = "id"
	RepoFieldFullName     = "full_name"
	RepoFieldDescription  = "description"
	RepoFieldLanguage     = "language"
	RepoFieldLanguageText = "language_text"
	RepoFieldStars        = "stars"
	RepoFieldStarsPerDay  = "stars_per_day"
	RepoFieldCreatedAt    = "created_at"
	RepoFieldPushedAt     = "pushed_at"
	RepoFieldArchived     = "archived"
	RepoFieldTopics       = "topics"
	RepoFieldHomepage     = "homepage"
	RepoFieldIcon         = "icon"
)

// NewRepositoryDocument shapes a raw platform record into a document.
// now is the fetch time used to derive StarsPerDay.
func NewRepositoryDocument(raw RawRepository, now time.Time) RepositoryDocument {
	created := Day(raw.CreatedAt())
	doc := RepositoryDocument{
		ID:          raw.ID(),
		FullName:    raw.FullName(),
		Stars:       raw.Stars(),
		StarsPerDay: StarsPerDay(raw.Stars(), raw.CreatedAt(), now),
		CreatedAt:   created,
		PushedAt:    Day(raw.PushedAt()),
		Archived:    raw.Archived(),
		Topics:      append([]string(nil), raw.Topics()...),
		Icon:        raw.OwnerAvatarURL(),
	}
	if v, ok := raw.Description(); ok {
		doc.Description = &v
	}
	if v, ok := raw.Language(); ok {
		doc.Language = &v
	}
	if v, ok := raw.Homepage(); ok {
		doc.Homepage = &v
	}
	if doc.Topics == nil {
		doc.Topics = []string{}
	}
	return doc
}

// StarsPerDay returns stars divided by the number of whole days since
// creation plus one, so a repository created today divides by one.
func StarsPerDay(stars int, createdAt, now time.Time) float64 {
	days := int(now.Sub(createdAt) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	return float64(stars) / float64(days+1)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// View projects the document down to the caller-facing fields.
func (d RepositoryDocument) View() RepositoryView {
	topics := d.Topics
	if topics == nil {
		topics = []string{}
	}
	v := RepositoryView{
		FullName:    d.FullName,
		Description: d.Description,
		Language:    d.Language,
		Topics:      topics,
		Stars:       d.Stars,
	}
	if !d.CreatedAt.IsZero() {
		v.CreatedAt = d.CreatedAt.Format(DateLayout)
	}
	return v
}

// LanguageOr returns the language or def when absent.
func (d RepositoryDocument) LanguageOr(def string) string {
	if d.Language == nil {
		return def
	}
	return *d.Language
}

// DescriptionOr returns the description or def when absent.
func (d RepositoryDocument) DescriptionOr(def string) string {
	if d.Description == nil {
		return def
	}
	return *d.Description
}
