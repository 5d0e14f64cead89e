// Package build invokes the fixed toolchain that compiles and runs the generated server.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"autodev/pkg/logx"
)

// killGrace bounds how long a killed command may hold its output pipes open.
const killGrace = 5 * time.Second

// ExecOpts says where a toolchain command runs and where its output goes.
type ExecOpts struct {
	Dir string
	// Env is appended to the inherited environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs one toolchain command to completion. A non-zero exit status is
// reported through exitCode, not err; err is reserved for commands that could not
// run or were cancelled through ctx.
type Executor interface {
	Run(ctx context.Context, argv []string, opts ExecOpts) (exitCode int, err error)
	Name() string
}

// HostExecutor runs the toolchain on the local machine.
type HostExecutor struct {
	logger *logx.Logger
}

func NewHostExecutor() *HostExecutor {
	return &HostExecutor{logger: logx.NewLogger("toolchain")}
}

func (h *HostExecutor) Name() string { return "host" }

// Run starts argv in its own process group so that cancelling ctx also kills
// whatever the build command spawned.
func (h *HostExecutor) Run(ctx context.Context, argv []string, opts ExecOpts) (int, error) {
	cmd, err := hostCommand(ctx, argv, opts)
	if err != nil {
		return -1, err
	}
	h.logger.Debug("%s$ %s", opts.Dir, strings.Join(argv, " "))

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case ctx.Err() != nil:
		return -1, ctx.Err()
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	default:
		return -1, fmt.Errorf("failed to execute %s: %w", argv[0], err)
	}
}

func hostCommand(ctx context.Context, argv []string, opts ExecOpts) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, errors.New("command cannot be empty")
	}
	if opts.Stdout == nil || opts.Stderr == nil {
		return nil, errors.New("stdout and stderr writers are required")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout, cmd.Stderr = opts.Stdout, opts.Stderr
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) }
	cmd.WaitDelay = killGrace
	return cmd, nil
}

// MockExecutor replays scripted build outcomes. Results are used in order and the
// last one repeats; with no results every build passes.
type MockExecutor struct {
	Results []MockResult
	Calls   []MockExecCall
}

// MockResult is one scripted outcome of MockExecutor.Run.
type MockResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Error    error
}

// MockExecCall is one recorded Run.
type MockExecCall struct {
	Argv []string
	Dir  string
}

func NewMockExecutor(results ...MockResult) *MockExecutor {
	return &MockExecutor{Results: results}
}

func (m *MockExecutor) Name() string { return "mock" }

// Run records the call and writes the scripted output.
func (m *MockExecutor) Run(_ context.Context, argv []string, opts ExecOpts) (int, error) {
	m.Calls = append(m.Calls, MockExecCall{Argv: argv, Dir: opts.Dir})

	if len(m.Results) == 0 {
		return 0, nil
	}
	res := m.Results[min(len(m.Calls), len(m.Results))-1]

	if res.Stdout != "" && opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, res.Stdout)
	}
	if res.Stderr != "" && opts.Stderr != nil {
		_, _ = io.WriteString(opts.Stderr, res.Stderr)
	}
	return res.ExitCode, res.Error
}
