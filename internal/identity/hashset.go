package identity

import "strings"

// HashLength is the length of a full hex commit hash.
const HashLength = 40

// HashSet tests commit hashes for membership in an ignore list whose entries
// may be full 40-hex hashes or abbreviated prefixes.
type HashSet struct {
	exact    map[string]struct{}
	prefixes []string
	entries  []string
}

// NewHashSet builds a HashSet from the given entries. Full-length entries
// match exactly; shorter entries match any hash they prefix. Entries are
// case-insensitive.
func NewHashSet(entries ...string) *HashSet {
	s := &HashSet{exact: make(map[string]struct{}, len(entries))}

	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}

		s.entries = append(s.entries, entry)

		if len(entry) == HashLength {
			s.exact[entry] = struct{}{}
		} else {
			s.prefixes = append(s.prefixes, entry)
		}
	}

	return s
}

// Contains reports whether hash matches an entry exactly or by prefix.
func (s *HashSet) Contains(hash string) bool {
	if s == nil {
		return false
	}

	hash = strings.ToLower(hash)

	if _, ok := s.exact[hash]; ok {
		return true
	}

	for _, prefix := range s.prefixes {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}

	return false
}

// Empty reports whether the set has no entries.
func (s *HashSet) Empty() bool {
	return s == nil || len(s.entries) == 0
}

// Entries returns the normalized entries in insertion order.
func (s *HashSet) Entries() []string {
	if s == nil {
		return nil
	}

	out := make([]string, len(s.entries))
	copy(out, s.entries)

	return out
}
