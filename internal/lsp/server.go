// Package lsp serves line authorship over the Language Server Protocol.
// Hovering a line answers with the author, authored date, and commit that
// last touched it, computed on open and save and cached per document
// version.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/codetally/internal/authorship"
	"github.com/Sumatoshi-tech/codetally/internal/filetype"
	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
	"github.com/Sumatoshi-tech/codetally/pkg/version"
)

const serverName = "codetally"

// hoverDateFormat renders authored timestamps in hover content.
const hoverDateFormat = "2006-01-02"

var (
	// ErrNotFileURI indicates a document URI with a non-file scheme.
	ErrNotFileURI = errors.New("document uri is not a file uri")

	// ErrNoRepository indicates a document with no enclosing git repository.
	ErrNoRepository = errors.New("no enclosing git repository")
)

// Server implements the authorship hover LSP server.
type Server struct {
	store   *DocumentStore
	handler protocol.Handler
	logger  *slog.Logger

	// repo pins every document to one repository root. Empty means the
	// root is discovered per document by walking up to the nearest .git.
	repo string

	mu      sync.Mutex
	engines map[string]*engine
}

// Option configures the server.
type Option func(*Server)

// WithRepo pins analysis to one repository root instead of discovering the
// root per document.
func WithRepo(root string) Option {
	return func(srv *Server) {
		srv.repo = root
	}
}

// WithLogger routes server diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = logger
	}
}

// NewServer creates a new authorship hover server with default handlers.
func NewServer(opts ...Option) *Server {
	srv := &Server{
		store:   NewDocumentStore(),
		logger:  slog.Default(),
		engines: make(map[string]*engine),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
		TextDocumentHover:     srv.hover,
	}

	return srv
}

// Run starts the LSP server on stdio and blocks until the client
// disconnects.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	// Whole-document sync keeps the buffer content authoritative for the
	// version checks the hover cache depends on.
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindFull

	ver := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &ver,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(_ *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Set(uri, params.TextDocument.Text, int32(params.TextDocument.Version))
	srv.attribute(uri)

	return nil
}

func (srv *Server) didChange(_ *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	doc, ok := srv.store.Get(uri)
	if !ok {
		return nil
	}

	content := doc.Content

	for _, raw := range params.ContentChanges {
		if text, textOK := wholeChangeText(raw); textOK {
			content = text
		}
	}

	// The version always advances so a hover never answers from lines that
	// no longer match the buffer.
	srv.store.Set(uri, content, int32(params.TextDocument.Version))

	return nil
}

// wholeChangeText extracts the full replacement text from one content
// change event when the client sent whole-document sync.
func wholeChangeText(raw any) (string, bool) {
	switch change := raw.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return change.Text, true
	case map[string]any:
		text, ok := change["text"].(string)

		return text, ok
	default:
		return "", false
	}
}

func (srv *Server) didSave(_ *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	doc, ok := srv.store.Get(uri)
	if !ok {
		return nil
	}

	if params.Text != nil {
		srv.store.Set(uri, *params.Text, doc.Version)
	}

	srv.attribute(uri)

	return nil
}

func (srv *Server) didClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	srv.store.Delete(params.TextDocument.URI)

	return nil
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := srv.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil // LSP protocol expects nil hover when no document found.
	}

	lines, ok := doc.CurrentLines()
	if !ok {
		return nil, nil
	}

	idx := int(params.Position.Line)
	if idx < 0 || idx >= len(lines) {
		return nil, nil
	}

	value := hoverMarkdown(lines[idx])
	if value == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}, nil
}

// hoverMarkdown renders one line's attribution. Untracked lines report the
// uncommitted state; excluded lines name no author but keep the commit.
func hoverMarkdown(line authorship.LineInfo) string {
	if line.Author == nil {
		return ""
	}

	if !line.Tracked {
		return "Uncommitted change"
	}

	var b strings.Builder

	if line.Author.IsUnknown() {
		b.WriteString("No attributed author")
	} else {
		fmt.Fprintf(&b, "**%s**", line.Author.Name())
	}

	if !line.LastModified.IsZero() {
		fmt.Fprintf(&b, " authored %s", line.LastModified.Format(hoverDateFormat))
	}

	if line.Committed() {
		fmt.Fprintf(&b, "\n\nCommit `%s`", shortHash(line.Hash))
	}

	return b.String()
}

func shortHash(hash string) string {
	const short = 12

	if len(hash) > short {
		return hash[:short]
	}

	return hash
}

// attribute analyzes the stored buffer for uri and caches the attributed
// lines. Failures are logged, never surfaced to the editor.
func (srv *Server) attribute(uri string) {
	doc, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	path, err := uriToPath(uri)
	if err != nil {
		srv.logger.Warn("unsupported document uri", "uri", uri, "error", err)

		return
	}

	root := srv.repo
	if root == "" {
		root, err = findRepoRoot(path)
		if err != nil {
			srv.logger.Warn("no repository for document", "path", path, "error", err)

			return
		}
	}

	ctx := context.Background()

	eng, err := srv.engineFor(ctx, root)
	if err != nil {
		srv.logger.Warn("attribution engine unavailable", "root", root, "error", err)

		return
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		srv.logger.Warn("document outside repository", "path", path, "root", root)

		return
	}

	rel = filepath.ToSlash(rel)

	if eng.cfg.Classifier.SkipPath(rel) || matchesAny(eng.cfg.IgnoreGlobs, rel) {
		return
	}

	content := []byte(doc.Content)
	if filetype.IsBinary(content) {
		return
	}

	info := authorship.NewFileInfo(rel, eng.cfg.Classifier.Group(rel, content), content, eng.cfg.FileLineLimit)

	res := eng.analyzer.AnalyzeTextFile(ctx, info)
	if res.IsFailed() {
		srv.logger.Warn("attribution failed", "path", rel, "error", res.Err())

		return
	}

	// An absent result can still carry attributed lines when every author
	// is filtered from reports; hover keeps answering for those. Lines
	// without an author mean the analysis never ran, so there is nothing
	// to cache.
	if len(info.Lines) == 0 || info.Lines[0].Author == nil {
		return
	}

	srv.store.SetLines(uri, doc.Version, info.Lines)
}

// engine is the attribution pipeline for one repository root, shared by all
// documents under it.
type engine struct {
	cfg      *repocfg.Analysis
	analyzer *authorship.Analyzer
}

func (srv *Server) engineFor(ctx context.Context, root string) (*engine, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if eng, ok := srv.engines[root]; ok {
		return eng, nil
	}

	cfg, err := loadRepoConfig(root)
	if err != nil {
		return nil, err
	}

	cfg.Root = root

	// Hover needs authored dates regardless of the report configuration.
	cfg.LastModified = true

	analysis, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build analysis config: %w", err)
	}

	runner := gitcmd.NewRunner(root, gitcmd.WithLogger(srv.logger))

	shallow, err := runner.IsShallow(ctx)
	if err != nil {
		return nil, fmt.Errorf("check shallow: %w", err)
	}

	if analysis.PreviousAuthors {
		err = runner.PrepareIgnoreRevs(ctx, analysis.IgnoreCommits.Entries())
		if err != nil {
			return nil, fmt.Errorf("prepare ignore revs: %w", err)
		}
	}

	eng := &engine{
		cfg:      analysis,
		analyzer: authorship.NewAnalyzer(runner, analysis, shallow, srv.logger),
	}
	srv.engines[root] = eng

	return eng, nil
}

func loadRepoConfig(root string) (*repocfg.Config, error) {
	bundled := filepath.Join(root, repocfg.FileName)

	_, err := os.Stat(bundled)
	if err != nil {
		return repocfg.DefaultConfig(), nil
	}

	cfg, err := repocfg.Load(bundled)
	if err != nil {
		return nil, fmt.Errorf("load repo config: %w", err)
	}

	return cfg, nil
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}

	if parsed.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrNotFileURI, uri)
	}

	return filepath.FromSlash(parsed.Path), nil
}

// findRepoRoot walks up from the file's directory to the nearest directory
// containing a .git entry.
func findRepoRoot(path string) (string, error) {
	dir := filepath.Dir(path)

	for {
		_, err := os.Stat(filepath.Join(dir, ".git"))
		if err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrNoRepository, path)
		}

		dir = parent
	}
}

func matchesAny(globs []string, path string) bool {
	for _, glob := range globs {
		ok, err := doublestar.Match(glob, path)
		if err == nil && ok {
			return true
		}
	}

	return false
}
