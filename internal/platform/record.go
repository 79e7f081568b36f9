package platform

import (
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// record adapts a go-github repository to domain.RawRepository.
type record struct {
	repo *github.Repository
}

var _ domain.RawRepository = record{}

// NewRecord wraps a go-github repository as a raw record.
func NewRecord(repo *github.Repository) domain.RawRepository {
	return record{repo: repo}
}

func (r record) ID() int64        { return r.repo.GetID() }
func (r record) FullName() string { return r.repo.GetFullName() }
func (r record) Stars() int       { return r.repo.GetStargazersCount() }
func (r record) Archived() bool   { return r.repo.GetArchived() }

func (r record) Description() (string, bool) {
	return optional(r.repo.Description)
}

func (r record) Language() (string, bool) {
	return optional(r.repo.Language)
}

func (r record) Homepage() (string, bool) {
	return optional(r.repo.Homepage)
}

func (r record) CreatedAt() time.Time {
	return r.repo.GetCreatedAt().Time
}

func (r record) PushedAt() time.Time {
	return r.repo.GetPushedAt().Time
}

func (r record) Topics() []string {
	return r.repo.Topics
}

func (r record) OwnerAvatarURL() string {
	return r.repo.GetOwner().GetAvatarURL()
}

// optional treats a nil pointer as absent. The platform reports a missing
// description or homepage as null, and sometimes as an empty string.
func optional(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}
