// Package identity maps raw commit signatures (name, email) to canonical
// authors under alias configuration, and provides commit-hash ignore lists
// with abbreviated-prefix matching.
package identity

import "github.com/bmatcuk/doublestar/v4"

// unknownGitID is the reserved id of the Unknown author.
const unknownGitID = "-"

// Author is one canonical contributor identity. The resolver returns the
// same *Author for every signature that maps to it, so authors compare by
// pointer, never by raw string.
type Author struct {
	// GitID is the canonical id. Unique within one resolver.
	GitID string

	// DisplayName is the name shown in reports. Falls back to GitID.
	DisplayName string

	// IgnoreGlobs are path patterns (slash-separated, ** allowed) for files
	// this author's lines are excluded from.
	IgnoreGlobs []string
}

// Unknown is the sentinel author for lines whose true author is excluded by
// rule or cannot be resolved.
var Unknown = &Author{GitID: unknownGitID, DisplayName: unknownGitID}

// Name returns the display name, falling back to the canonical id.
func (a *Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}

	return a.GitID
}

// IsUnknown reports whether the author is the Unknown sentinel.
func (a *Author) IsUnknown() bool {
	return a == Unknown
}

// IgnoresFile reports whether path (slash-separated, relative to the
// repository root) matches any of the author's ignore globs. Invalid
// patterns never match; they are rejected earlier at configuration load.
func (a *Author) IgnoresFile(path string) bool {
	for _, glob := range a.IgnoreGlobs {
		ok, err := doublestar.Match(glob, path)
		if err == nil && ok {
			return true
		}
	}

	return false
}

// AllowSet is the set of authors whose contributions are worth reporting.
// A nil or empty set allows every author.
type AllowSet struct {
	members map[*Author]struct{}
}

// NewAllowSet builds an AllowSet from the given authors.
func NewAllowSet(authors ...*Author) *AllowSet {
	if len(authors) == 0 {
		return &AllowSet{}
	}

	members := make(map[*Author]struct{}, len(authors))
	for _, a := range authors {
		members[a] = struct{}{}
	}

	return &AllowSet{members: members}
}

// Allows reports whether the author's contributions should be reported.
func (s *AllowSet) Allows(a *Author) bool {
	if s == nil || len(s.members) == 0 {
		return true
	}

	_, ok := s.members[a]

	return ok
}

// Empty reports whether the set allows every author.
func (s *AllowSet) Empty() bool {
	return s == nil || len(s.members) == 0
}
