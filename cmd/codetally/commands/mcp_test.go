package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codetally/internal/mcp"
)

func TestMCPCommand_ExecutorReceivesDeps(t *testing.T) {
	t.Parallel()

	var captured mcp.ServerDeps

	called := false

	command := newMCPCommandWithDeps(func(_ context.Context, deps mcp.ServerDeps) error {
		called = true
		captured = deps

		return nil
	})

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{})

	require.NoError(t, command.Execute())
	require.True(t, called)
	require.NotNil(t, captured.Logger)
	require.NotNil(t, captured.Metrics)
}

func TestMCPCommand_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	var captured mcp.ServerDeps

	command := newMCPCommandWithDeps(func(_ context.Context, deps mcp.ServerDeps) error {
		captured = deps

		return nil
	})

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{"--metrics-addr", "127.0.0.1:0"})

	require.NoError(t, command.Execute())
	require.NotNil(t, captured.Metrics)
}

func TestMCPCommand_DebugFlag(t *testing.T) {
	t.Parallel()

	command := newMCPCommandWithDeps(func(context.Context, mcp.ServerDeps) error {
		return nil
	})

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{"--debug"})

	require.NoError(t, command.Execute())
}

func TestMCPCommand_MissingConfigFileFails(t *testing.T) {
	t.Parallel()

	command := newMCPCommandWithDeps(func(context.Context, mcp.ServerDeps) error {
		return nil
	})

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{"--config", "does-not-exist.yaml"})

	require.Error(t, command.Execute())
}
