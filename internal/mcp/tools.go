package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/codetally/internal/authorship"
	"github.com/Sumatoshi-tech/codetally/internal/filetype"
	"github.com/Sumatoshi-tech/codetally/internal/gitcmd"
	"github.com/Sumatoshi-tech/codetally/internal/report"
	"github.com/Sumatoshi-tech/codetally/internal/repocfg"
)

// Tool name constants.
const (
	ToolNameAttributeFile = "attribute_file"
	ToolNameRepoSummary   = "repo_summary"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo parameter is empty.
	ErrEmptyRepoPath = errors.New("repo parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
	// ErrEmptyFilePath indicates the path parameter is empty.
	ErrEmptyFilePath = errors.New("path parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// AttributeFileInput is the input schema for the attribute_file tool.
type AttributeFileInput struct {
	Repo   string `json:"repo"             jsonschema:"absolute path to a Git repository"`
	Path   string `json:"path"             jsonschema:"file path relative to the repository root"`
	Config string `json:"config,omitempty" jsonschema:"optional repository config file (YAML)"`
}

// RepoSummaryInput is the input schema for the repo_summary tool.
type RepoSummaryInput struct {
	Repo   string `json:"repo"             jsonschema:"absolute path to a Git repository"`
	Config string `json:"config,omitempty" jsonschema:"optional repository config file (YAML)"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// LineAttribution is one line of the attribute_file response.
type LineAttribution struct {
	Number   int    `json:"number"`
	Author   string `json:"author"`
	Tracked  bool   `json:"tracked"`
	Modified string `json:"modified,omitempty"`
}

// AttributeFileOutput is the tri-state-shaped attribute_file response.
type AttributeFileOutput struct {
	Status        string            `json:"status"`
	Path          string            `json:"path,omitempty"`
	Kind          string            `json:"kind,omitempty"`
	Lines         []LineAttribution `json:"lines,omitempty"`
	Contributions map[string]int    `json:"contributions,omitempty"`
}

// RepoSummaryOutput is the repo_summary response.
type RepoSummaryOutput struct {
	Repo    string                 `json:"repo"`
	Branch  string                 `json:"branch,omitempty"`
	Window  report.Window          `json:"window"`
	Totals  report.Totals          `json:"totals"`
	Authors []report.AuthorSummary `json:"authors"`
}

// Attribution status values.
const (
	statusPresent = "present"
	statusAbsent  = "absent"
)

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateRepoInput checks the shared repo parameter constraints.
func validateRepoInput(repo string) error {
	if repo == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repo) {
		return ErrRepoPathNotAbsolute
	}

	_, err := os.Stat(repo)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repo)
	}

	_, err = os.Stat(filepath.Join(repo, ".git"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, repo)
	}

	return nil
}

// repoAnalysis loads repository configuration and builds the run artifacts.
// An explicit config path wins; otherwise a codetally-repo.yaml next to the
// repo root is used when present, defaults when not.
func repoAnalysis(repo, explicit string) (*repocfg.Analysis, error) {
	cfg, err := resolveConfig(repo, explicit)
	if err != nil {
		return nil, err
	}

	cfg.Root = repo

	analysis, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build analysis config: %w", err)
	}

	return analysis, nil
}

func resolveConfig(repo, explicit string) (*repocfg.Config, error) {
	if explicit != "" {
		cfg, err := repocfg.Load(explicit)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}

		return cfg, nil
	}

	bundled := filepath.Join(repo, repocfg.FileName)

	_, err := os.Stat(bundled)
	if err != nil {
		return repocfg.DefaultConfig(), nil
	}

	cfg, err := repocfg.Load(bundled)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// handleAttributeFile processes attribute_file tool calls.
func (s *Server) handleAttributeFile(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input AttributeFileInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoInput(input.Repo)
	if err != nil {
		return errorResult(err)
	}

	if input.Path == "" {
		return errorResult(ErrEmptyFilePath)
	}

	analysis, err := repoAnalysis(input.Repo, input.Config)
	if err != nil {
		return errorResult(err)
	}

	runner := gitcmd.NewRunner(analysis.Root, gitcmd.WithLogger(s.logger))

	analyzer, err := s.buildAnalyzer(ctx, runner, analysis)
	if err != nil {
		return errorResult(err)
	}

	content, err := os.ReadFile(filepath.Join(analysis.Root, filepath.FromSlash(input.Path)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return jsonResult(AttributeFileOutput{Status: statusAbsent, Path: input.Path})
		}

		return errorResult(fmt.Errorf("read file: %w", err))
	}

	group := analysis.Classifier.Group(input.Path, content)
	binary := filetype.IsBinary(content)

	var info *authorship.FileInfo
	if binary {
		info = &authorship.FileInfo{Path: input.Path, Group: group}
	} else {
		info = authorship.NewFileInfo(input.Path, group, content, analysis.FileLineLimit)
	}

	res := analyzer.AnalyzeFile(ctx, info, binary)

	switch {
	case res.IsFailed():
		return errorResult(res.Err())
	case res.IsAbsent():
		return jsonResult(AttributeFileOutput{Status: statusAbsent, Path: input.Path})
	default:
		fileRes, _ := res.Value()

		return jsonResult(attributionOutput(fileRes))
	}
}

func (s *Server) buildAnalyzer(ctx context.Context, runner *gitcmd.Runner, analysis *repocfg.Analysis) (*authorship.Analyzer, error) {
	shallow, err := runner.IsShallow(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect shallow repository: %w", err)
	}

	if analysis.PreviousAuthors {
		err = runner.PrepareIgnoreRevs(ctx, analysis.IgnoreCommits.Entries())
		if err != nil {
			return nil, fmt.Errorf("prepare ignore revs: %w", err)
		}
	}

	return authorship.NewAnalyzer(runner, analysis, shallow, s.logger), nil
}

func attributionOutput(fileRes authorship.FileResult) AttributeFileOutput {
	out := AttributeFileOutput{
		Status:        statusPresent,
		Path:          fileRes.Path,
		Kind:          string(fileRes.Kind),
		Contributions: make(map[string]int, len(fileRes.Contributions)),
	}

	for author, count := range fileRes.Contributions {
		out.Contributions[author.GitID] = count
	}

	if fileRes.Kind != authorship.KindText {
		return out
	}

	out.Lines = make([]LineAttribution, 0, len(fileRes.Lines))

	for _, line := range fileRes.Lines {
		entry := LineAttribution{
			Number:  line.Number,
			Author:  line.Author.GitID,
			Tracked: line.Tracked,
		}

		if !line.LastModified.IsZero() {
			entry.Modified = line.LastModified.Format(time.RFC3339)
		}

		out.Lines = append(out.Lines, entry)
	}

	return out
}

// handleRepoSummary processes repo_summary tool calls.
func (s *Server) handleRepoSummary(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input RepoSummaryInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoInput(input.Repo)
	if err != nil {
		return errorResult(err)
	}

	analysis, err := repoAnalysis(input.Repo, input.Config)
	if err != nil {
		return errorResult(err)
	}

	runner := gitcmd.NewRunner(analysis.Root, gitcmd.WithLogger(s.logger))
	generator := report.NewGenerator(runner, analysis, s.logger)

	rep, err := generator.Run(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("analyze repository: %w", err))
	}

	return jsonResult(RepoSummaryOutput{
		Repo:    rep.Repo,
		Branch:  rep.Branch,
		Window:  rep.Window,
		Totals:  rep.Totals,
		Authors: rep.Authors,
	})
}
