// Package repocfg loads and validates per-repository analysis configuration
// and derives the run-ready artifacts (identity resolver, ignored commits,
// allow-list, file classifier, date window) from it.
package repocfg

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/codetally/internal/filetype"
	"github.com/Sumatoshi-tech/codetally/internal/identity"
)

// DateFormat is the accepted layout for since/until values.
const DateFormat = "2006-01-02"

// DefaultWindowDays is the span of the analysis window when since is not
// configured.
const DefaultWindowDays = 90

// DefaultFileLineLimit caps how many lines of a file are analyzed.
const DefaultFileLineLimit = 8000

// AuthorSpec declares one canonical author in the configuration file.
type AuthorSpec struct {
	GitID       string   `mapstructure:"git-id"           yaml:"git-id"`
	DisplayName string   `mapstructure:"display-name"     yaml:"display-name,omitempty"`
	Emails      []string `mapstructure:"emails"           yaml:"emails,omitempty"`
	Aliases     []string `mapstructure:"aliases"          yaml:"aliases,omitempty"`
	IgnoreGlobs []string `mapstructure:"ignore-glob-list" yaml:"ignore-glob-list,omitempty"`
}

// FileGroup maps a report group label to the glob patterns selecting it.
type FileGroup struct {
	Label string   `mapstructure:"label" yaml:"label"`
	Globs []string `mapstructure:"globs" yaml:"globs"`
}

// Config is the per-repository configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Root            string       `mapstructure:"root"`
	Branch          string       `mapstructure:"branch"`
	Blurb           string       `mapstructure:"blurb"`
	Since           string       `mapstructure:"since"`
	Until           string       `mapstructure:"until"`
	Timezone        string       `mapstructure:"timezone"`
	IgnoreCommits   []string     `mapstructure:"ignore-commits-list"`
	IgnoreAuthors   []string     `mapstructure:"ignore-authors-list"`
	IgnoreGlobs     []string     `mapstructure:"ignore-glob-list"`
	AllowAuthors    []string     `mapstructure:"allow-authors-list"`
	Authors         []AuthorSpec `mapstructure:"authors"`
	FileGroups      []FileGroup  `mapstructure:"file-groups"`
	SkipVendored    bool         `mapstructure:"skip-vendored"`
	LastModified    bool         `mapstructure:"last-modified"`
	PreviousAuthors bool         `mapstructure:"previous-authors"`
	Churn           bool         `mapstructure:"churn"`
	FileLineLimit   int          `mapstructure:"file-line-limit"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidTimezone indicates the timezone name cannot be loaded.
	ErrInvalidTimezone = errors.New("timezone is not a valid IANA zone name")
	// ErrInvalidSince indicates the since date does not match DateFormat.
	ErrInvalidSince = errors.New("since must be formatted as YYYY-MM-DD")
	// ErrInvalidUntil indicates the until date does not match DateFormat.
	ErrInvalidUntil = errors.New("until must be formatted as YYYY-MM-DD")
	// ErrWindowInverted indicates since is after until.
	ErrWindowInverted = errors.New("since must not be after until")
	// ErrInvalidLineLimit indicates the file line limit is negative.
	ErrInvalidLineLimit = errors.New("file-line-limit must be non-negative")
	// ErrUnknownAllowedAuthor indicates an allow-list entry that resolves to
	// no configured author.
	ErrUnknownAllowedAuthor = errors.New("allow-authors-list entry matches no configured author")
)

// DefaultConfig returns a Config with package defaults applied.
func DefaultConfig() *Config {
	return &Config{
		FileLineLimit: DefaultFileLineLimit,
	}
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.FileLineLimit < 0 {
		return ErrInvalidLineLimit
	}

	zone, err := c.zone()
	if err != nil {
		return err
	}

	_, _, err = c.window(zone, time.Now().In(zone))

	return err
}

// Analysis holds the run-ready artifacts derived from a validated Config.
type Analysis struct {
	Root            string
	Branch          string
	Blurb           string
	Since           time.Time
	Until           time.Time
	Zone            *time.Location
	Resolver        *identity.Resolver
	IgnoreCommits   *identity.HashSet
	Allowed         *identity.AllowSet
	Classifier      *filetype.Classifier
	IgnoreGlobs     []string
	LastModified    bool
	PreviousAuthors bool
	Churn           bool
	FileLineLimit   int
}

// Build validates the configuration and derives the Analysis artifacts.
// When no authors are declared, the resolver registers identities on first
// sight; declared authors disable auto-registration so unconfigured
// contributors resolve to the unknown author.
func (c *Config) Build() (*Analysis, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	zone, err := c.zone()
	if err != nil {
		return nil, err
	}

	since, until, err := c.window(zone, time.Now().In(zone))
	if err != nil {
		return nil, err
	}

	specs := make([]identity.Spec, 0, len(c.Authors))
	for _, author := range c.Authors {
		specs = append(specs, identity.Spec{
			GitID:       author.GitID,
			DisplayName: author.DisplayName,
			Emails:      author.Emails,
			Aliases:     author.Aliases,
			IgnoreGlobs: author.IgnoreGlobs,
		})
	}

	autoRegister := len(c.Authors) == 0

	resolver, err := identity.NewResolver(specs, c.IgnoreAuthors, autoRegister)
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	allowed, err := buildAllowSet(resolver, c.AllowAuthors, autoRegister)
	if err != nil {
		return nil, err
	}

	limit := c.FileLineLimit
	if limit == 0 {
		limit = DefaultFileLineLimit
	}

	groups := make([]filetype.GroupSpec, 0, len(c.FileGroups))
	for _, group := range c.FileGroups {
		groups = append(groups, filetype.GroupSpec{Label: group.Label, Globs: group.Globs})
	}

	return &Analysis{
		Root:            c.Root,
		Branch:          c.Branch,
		Blurb:           c.Blurb,
		Since:           since,
		Until:           until,
		Zone:            zone,
		Resolver:        resolver,
		IgnoreCommits:   identity.NewHashSet(c.IgnoreCommits...),
		Allowed:         allowed,
		Classifier:      filetype.NewClassifier(filetype.WithGroups(groups), filetype.WithVendoredSkipped(c.SkipVendored)),
		IgnoreGlobs:     c.IgnoreGlobs,
		LastModified:    c.LastModified,
		PreviousAuthors: c.PreviousAuthors,
		Churn:           c.Churn,
		FileLineLimit:   limit,
	}, nil
}

func (c *Config) zone() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}

	zone, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}

	return zone, nil
}

// window computes the closed [since, until] interval: since starts its day,
// until ends its day. Defaults are the DefaultWindowDays days ending at now.
func (c *Config) window(zone *time.Location, now time.Time) (since, until time.Time, err error) {
	if c.Until != "" {
		day, parseErr := time.ParseInLocation(DateFormat, c.Until, zone)
		if parseErr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidUntil, c.Until)
		}

		until = endOfDay(day)
	} else {
		until = endOfDay(now)
	}

	if c.Since != "" {
		day, parseErr := time.ParseInLocation(DateFormat, c.Since, zone)
		if parseErr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSince, c.Since)
		}

		since = startOfDay(day)
	} else {
		since = startOfDay(until.AddDate(0, 0, -DefaultWindowDays))
	}

	if since.After(until) {
		return time.Time{}, time.Time{}, ErrWindowInverted
	}

	return since, until, nil
}

func buildAllowSet(resolver *identity.Resolver, entries []string, autoRegister bool) (*identity.AllowSet, error) {
	if len(entries) == 0 {
		return identity.NewAllowSet(), nil
	}

	authors := make([]*identity.Author, 0, len(entries))

	for _, entry := range entries {
		author := resolver.ResolveName(entry)
		if author.IsUnknown() && !autoRegister {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAllowedAuthor, entry)
		}

		authors = append(authors, author)
	}

	return identity.NewAllowSet(authors...), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
