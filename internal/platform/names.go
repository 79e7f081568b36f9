package platform

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidFullName indicates the value is not an owner/name reference
	ErrInvalidFullName = errors.New("invalid repository reference, expected owner/name")

	// Matches: git@github.com:owner/name.git
	sshScpPattern = regexp.MustCompile(`^git@([^:]+):([^/]+)/([^/]+?)(?:\.git)?/?$`)

	// Matches: https://github.com/owner/name, ssh://git@github.com/owner/name.git, github.com/owner/name
	urlPattern = regexp.MustCompile(`^(?:(?:https?|ssh)://)?(?:git@)?([^/@]+\.[^/@]+)/([^/]+)/([^/]+?)(?:\.git)?/?$`)

	// Matches: owner/name
	fullNamePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9._-]+?)(?:\.git)?$`)
)

// ParseFullName extracts the owner and repository name from a repository
// reference. Accepted forms:
//   - owner/name
//   - https://github.com/owner/name (optionally ending in .git or /)
//   - github.com/owner/name
//   - git@github.com:owner/name.git
//   - ssh://git@github.com/owner/name.git
func ParseFullName(ref string) (owner, name string, err error) {
	ref = strings.TrimSpace(ref)

	if m := fullNamePattern.FindStringSubmatch(ref); m != nil {
		return m[1], m[2], nil
	}
	if m := sshScpPattern.FindStringSubmatch(ref); m != nil {
		return m[2], m[3], nil
	}
	if m := urlPattern.FindStringSubmatch(ref); m != nil {
		return m[2], m[3], nil
	}
	return "", "", ErrInvalidFullName
}

// NormalizeFullName returns the canonical "owner/name" form of a reference.
func NormalizeFullName(ref string) (string, error) {
	owner, name, err := ParseFullName(ref)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}
