package build

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodev/pkg/agent"
)

func TestBuildReportsFailureThroughResult(t *testing.T) {
	mock := NewMockExecutor(MockResult{ExitCode: 1, Stderr: "./main.go:3:1: syntax error\n"})
	tc := NewToolchain(mock, []string{"go", "build", "./..."}, []string{"go", "run", "."})

	res, err := tc.Build(context.Background(), "/srv/web")
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "./main.go:3:1: syntax error\n", res.Stderr)

	require.Len(t, mock.Calls, 1)
	assert.Equal(t, []string{"go", "build", "./..."}, mock.Calls[0].Argv)
	assert.Equal(t, "/srv/web", mock.Calls[0].Dir)
}

func TestBuildSuccess(t *testing.T) {
	tc := NewToolchain(NewMockExecutor(), []string{"go", "build"}, []string{"go", "run", "."})

	res, err := tc.Build(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func TestBuildExecutionErrorIsBuildError(t *testing.T) {
	mock := NewMockExecutor(MockResult{ExitCode: -1, Error: errors.New("executable file not found")})
	tc := NewToolchain(mock, []string{"go", "build"}, nil)

	_, err := tc.Build(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, agent.ErrBuild)
}

func TestMockExecutorReplaysInOrder(t *testing.T) {
	mock := NewMockExecutor(MockResult{ExitCode: 2}, MockResult{ExitCode: 0})
	tc := NewToolchain(mock, []string{"make"}, nil)

	first, err := tc.Build(context.Background(), "")
	require.NoError(t, err)
	second, err := tc.Build(context.Background(), "")
	require.NoError(t, err)
	third, err := tc.Build(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0, 0}, []int{first.ExitCode, second.ExitCode, third.ExitCode})
}

func TestHostExecutorCapturesOutput(t *testing.T) {
	tc := NewToolchain(NewHostExecutor(), []string{"sh", "-c", "echo built; echo oops >&2; exit 3"}, nil)

	res, err := tc.Build(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "built\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestHostExecutorMissingBinary(t *testing.T) {
	tc := NewToolchain(NewHostExecutor(), []string{"definitely-not-a-real-binary-xyz"}, nil)

	_, err := tc.Build(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, agent.ErrBuild)
}

func TestHostExecutorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tc := NewToolchain(NewHostExecutor(), []string{"sleep", "5"}, nil)
	_, err := tc.Build(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
