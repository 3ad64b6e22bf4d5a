package mcp_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/codetally/internal/gittest"
	"github.com/Sumatoshi-tech/codetally/internal/mcp"
)

// startSession connects an in-memory client to a freshly started server.
func startSession(t *testing.T, ctx context.Context) *mcpsdk.ClientSession {
	t.Helper()

	srv := mcp.NewServer(mcp.ServerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		<-serverDone
	})

	return session
}

func textContent(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session := startSession(t, ctx)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
	}

	assert.Contains(t, toolNames, "attribute_file")
	assert.Contains(t, toolNames, "repo_summary")
	assert.Len(t, toolNames, 2)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestMCPServer_InMemoryTransport_CallAttributeFile(t *testing.T) {
	t.Parallel()
	gittest.RequireGit(t)

	repo := gittest.NewRepo(t)
	repo.WriteFile("notes.txt", "alpha\nbeta\n")
	repo.Commit("add notes", "Alice", "alice@example.com", time.Now().Add(-24*time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session := startSession(t, ctx)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "attribute_file",
		Arguments: map[string]any{
			"repo": repo.Dir,
			"path": "notes.txt",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	payload := textContent(t, result)
	assert.Contains(t, payload, `"status": "present"`)
	assert.Contains(t, payload, "alice")
}

func TestMCPServer_InMemoryTransport_CallRepoSummary(t *testing.T) {
	t.Parallel()
	gittest.RequireGit(t)

	repo := gittest.NewRepo(t)
	repo.WriteFile("notes.txt", "alpha\nbeta\n")
	repo.Commit("add notes", "Alice", "alice@example.com", time.Now().Add(-24*time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session := startSession(t, ctx)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "repo_summary",
		Arguments: map[string]any{
			"repo": repo.Dir,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	payload := textContent(t, result)
	assert.Contains(t, payload, "alice")
	assert.Contains(t, payload, `"totals"`)
}

func TestMCPServer_InMemoryTransport_RejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session := startSession(t, ctx)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "attribute_file",
		Arguments: map[string]any{
			"repo": "relative/path",
			"path": "notes.txt",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}
