package domain

import "time"

// FakeRepository is an in-memory RawRepository.
// This is exported for use in tests of packages that consume raw records.
type FakeRepository struct {
	RepoID     int64
	Name       string
	Desc       *string
	Lang       *string
	StarCount  int
	Home       *string
	Created    time.Time
	Pushed     time.Time
	IsArchived bool
	TopicList  []string
	AvatarURL  string
}

func (f FakeRepository) ID() int64              { return f.RepoID }
func (f FakeRepository) FullName() string       { return f.Name }
func (f FakeRepository) Stars() int             { return f.StarCount }
func (f FakeRepository) CreatedAt() time.Time   { return f.Created }
func (f FakeRepository) PushedAt() time.Time    { return f.Pushed }
func (f FakeRepository) Archived() bool         { return f.IsArchived }
func (f FakeRepository) Topics() []string       { return f.TopicList }
func (f FakeRepository) OwnerAvatarURL() string { return f.AvatarURL }

func (f FakeRepository) Description() (string, bool) { return deref(f.Desc) }
func (f FakeRepository) Language() (string, bool)    { return deref(f.Lang) }
func (f FakeRepository) Homepage() (string, bool)    { return deref(f.Home) }

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }
