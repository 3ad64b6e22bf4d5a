package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNoGitID is returned when an author spec has no canonical id.
	ErrNoGitID = errors.New("author spec missing git id")

	// ErrDuplicateAlias is returned when a name or email maps to more than
	// one configured author.
	ErrDuplicateAlias = errors.New("alias maps to multiple authors")
)

// Spec describes one configured author before resolution.
type Spec struct {
	// GitID is the canonical id, required.
	GitID string

	// DisplayName is the optional report name.
	DisplayName string

	// Emails are addresses recognized as this author.
	Emails []string

	// Aliases are additional commit names recognized as this author.
	Aliases []string

	// IgnoreGlobs are path patterns whose lines are not credited to this
	// author.
	IgnoreGlobs []string
}

// Resolver maps (name, email) signatures to canonical authors. Resolution is
// pure for the lifetime of the resolver: the same inputs always yield the
// same *Author, so results can be cached and aggregated deterministically.
// Safe for concurrent use.
type Resolver struct {
	mu           sync.RWMutex
	byEmail      map[string]*Author
	byName       map[string]*Author
	ignored      map[string]struct{}
	authors      []*Author
	autoRegister bool
}

// NewResolver builds a resolver from configured author specs. Signatures for
// the listed ignored names, emails, or ids resolve to Unknown. When
// autoRegister is set, unrecognized signatures register a new author on
// first sight, merging loosely by email first and name second; otherwise
// they resolve to Unknown.
func NewResolver(specs []Spec, ignored []string, autoRegister bool) (*Resolver, error) {
	r := &Resolver{
		byEmail:      make(map[string]*Author),
		byName:       make(map[string]*Author),
		ignored:      make(map[string]struct{}, len(ignored)),
		autoRegister: autoRegister,
	}

	for _, entry := range ignored {
		entry = normalize(entry)
		if entry != "" {
			r.ignored[entry] = struct{}{}
		}
	}

	for _, spec := range specs {
		if strings.TrimSpace(spec.GitID) == "" {
			return nil, ErrNoGitID
		}

		author := &Author{
			GitID:       spec.GitID,
			DisplayName: spec.DisplayName,
			IgnoreGlobs: spec.IgnoreGlobs,
		}

		names := append([]string{spec.GitID, spec.DisplayName}, spec.Aliases...)
		for _, name := range names {
			err := r.index(r.byName, name, author)
			if err != nil {
				return nil, err
			}
		}

		for _, email := range spec.Emails {
			err := r.index(r.byEmail, email, author)
			if err != nil {
				return nil, err
			}
		}

		r.authors = append(r.authors, author)
	}

	return r, nil
}

func (r *Resolver) index(dict map[string]*Author, key string, author *Author) error {
	key = normalize(key)
	if key == "" {
		return nil
	}

	existing, ok := dict[key]
	if ok && existing != author {
		return fmt.Errorf("%w: %q", ErrDuplicateAlias, key)
	}

	dict[key] = author

	return nil
}

// Resolve returns the canonical author for a commit signature.
func (r *Resolver) Resolve(name, email string) *Author {
	name = normalize(name)
	email = normalizeEmail(email)

	if name == "" && email == "" {
		return Unknown
	}

	if r.isIgnored(name) || r.isIgnored(email) {
		return Unknown
	}

	r.mu.RLock()
	author, ok := r.lookup(name, email)
	r.mu.RUnlock()

	if ok {
		return r.guardIgnored(author)
	}

	if !r.autoRegister {
		return Unknown
	}

	return r.guardIgnored(r.register(name, email))
}

// ResolveName returns the canonical author for a bare name, as declared by
// in-source annotations.
func (r *Resolver) ResolveName(name string) *Author {
	return r.Resolve(name, "")
}

// Authors returns the resolved authors in registration order, explicit specs
// first. Unknown is never included.
func (r *Resolver) Authors() []*Author {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Author, len(r.authors))
	copy(out, r.authors)

	return out
}

// lookup finds a registered author by email first, then by name.
// Caller holds at least the read lock.
func (r *Resolver) lookup(name, email string) (*Author, bool) {
	if email != "" {
		if author, ok := r.byEmail[email]; ok {
			return author, true
		}
	}

	if name != "" {
		if author, ok := r.byName[name]; ok {
			return author, true
		}
	}

	return nil, false
}

// register adds a new loose identity, attaching unseen names and emails to
// an existing author when either key is already known.
func (r *Resolver) register(name, email string) *Author {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock: a sibling worker may have registered
	// the signature between the read and write sections.
	author, ok := r.lookup(name, email)
	if !ok {
		id := name
		if id == "" {
			id = email
		}

		author = &Author{GitID: id}
		r.authors = append(r.authors, author)
	}

	if email != "" {
		r.byEmail[email] = author
	}

	if name != "" {
		r.byName[name] = author
	}

	return author
}

func (r *Resolver) guardIgnored(author *Author) *Author {
	if r.isIgnored(normalize(author.GitID)) {
		return Unknown
	}

	return author
}

func (r *Resolver) isIgnored(key string) bool {
	if key == "" {
		return false
	}

	_, ok := r.ignored[key]

	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeEmail(s string) string {
	return normalize(strings.Trim(strings.TrimSpace(s), "<>"))
}
