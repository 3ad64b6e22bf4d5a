// Package filetype classifies repository paths into report groups and
// separates text from binary content.
package filetype

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"
)

// defaultGroup labels files with no configured group, no detected language
// and no extension.
const defaultGroup = "other"

// GroupSpec maps a report group label to the glob patterns that select it.
type GroupSpec struct {
	Label string
	Globs []string
}

// Classifier assigns each path a group: the first matching configured group,
// else the detected language, else the bare extension.
type Classifier struct {
	groups       []GroupSpec
	skipVendored bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithGroups sets the ordered custom groups. Earlier groups win.
func WithGroups(groups []GroupSpec) Option {
	return func(c *Classifier) {
		c.groups = groups
	}
}

// WithVendoredSkipped excludes conventional vendored paths (vendor trees,
// node_modules, minified assets) from analysis.
func WithVendoredSkipped(skip bool) Option {
	return func(c *Classifier) {
		c.skipVendored = skip
	}
}

// NewClassifier builds a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Group returns the group label for a slash-separated repo-relative path.
// Content may be nil; it only sharpens language detection for ambiguous
// extensions.
func (c *Classifier) Group(filePath string, content []byte) string {
	for _, group := range c.groups {
		for _, glob := range group.Globs {
			ok, err := doublestar.Match(glob, filePath)
			if err == nil && ok {
				return group.Label
			}
		}
	}

	lang := enry.GetLanguage(path.Base(filePath), content)
	if lang != "" {
		return strings.ToLower(lang)
	}

	ext := strings.TrimPrefix(path.Ext(filePath), ".")
	if ext != "" {
		return strings.ToLower(ext)
	}

	return defaultGroup
}

// SkipPath reports whether the path should be excluded from analysis
// entirely.
func (c *Classifier) SkipPath(filePath string) bool {
	return c.skipVendored && enry.IsVendor(filePath)
}
