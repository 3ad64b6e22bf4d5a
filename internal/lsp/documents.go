package lsp

import (
	"sync"

	"github.com/Sumatoshi-tech/codetally/internal/authorship"
)

// Document is one open editor buffer and the attribution computed for it.
type Document struct {
	// Content is the buffer text as last reported by the client.
	Content string

	// Version is the client's version number for Content.
	Version int32

	// Lines is the attributed line array computed at AttributedVersion.
	// Nil until the first analysis completes.
	Lines []authorship.LineInfo

	// AttributedVersion is the document version Lines were computed for.
	AttributedVersion int32
}

// CurrentLines returns the attributed lines when they match the live buffer
// version. Edits since the last analysis make the cache stale.
func (d Document) CurrentLines() ([]authorship.LineInfo, bool) {
	if d.Lines == nil || d.AttributedVersion != d.Version {
		return nil, false
	}

	return d.Lines, true
}

// DocumentStore is a thread-safe store for open documents keyed by URI.
type DocumentStore struct {
	documents map[string]*Document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Set stores document content for the given URI. Cached attribution from an
// earlier version is kept and turns stale until the next analysis.
func (ds *DocumentStore) Set(uri, content string, version int32) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	doc, ok := ds.documents[uri]
	if !ok {
		ds.documents[uri] = &Document{Content: content, Version: version}

		return
	}

	doc.Content = content
	doc.Version = version
}

// Get retrieves a snapshot of the document by URI.
func (ds *DocumentStore) Get(uri string) (Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]
	if !ok {
		return Document{}, false
	}

	return *doc, true
}

// Delete removes the document by URI.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// SetLines caches the attributed line array for the given document version.
// A document closed while its analysis ran is left alone.
func (ds *DocumentStore) SetLines(uri string, version int32, lines []authorship.LineInfo) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	doc, ok := ds.documents[uri]
	if !ok {
		return
	}

	doc.Lines = lines
	doc.AttributedVersion = version
}
