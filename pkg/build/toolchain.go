package build

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"autodev/pkg/agent"
	"autodev/pkg/logx"
)

// Result is the outcome of one build invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the build exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Toolchain builds and starts the generated server with fixed commands.
type Toolchain struct {
	executor Executor
	buildCmd []string
	runCmd   []string
	outLimit int
	logger   *logx.Logger
}

// DefaultOutputLimit is the number of trailing bytes of server output kept by a Process.
const DefaultOutputLimit = 64 << 10

// NewToolchain returns a Toolchain running buildCmd through executor and
// starting runCmd as a child process.
func NewToolchain(executor Executor, buildCmd, runCmd []string) *Toolchain {
	return &Toolchain{
		executor: executor,
		buildCmd: buildCmd,
		runCmd:   runCmd,
		outLimit: DefaultOutputLimit,
		logger:   logx.NewLogger("toolchain"),
	}
}

// Build runs the build command in dir. A failing build is reported through
// Result; the error is reserved for builds that could not be executed.
func (t *Toolchain) Build(ctx context.Context, dir string) (Result, error) {
	var stdout, stderr bytes.Buffer
	start := time.Now()

	exitCode, err := t.executor.Run(ctx, t.buildCmd, ExecOpts{Dir: dir, Stdout: &stdout, Stderr: &stderr})
	res := Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			return res, err //nolint:wrapcheck // cancellation passes through
		}
		return res, fmt.Errorf("%w: %s: %w", agent.ErrBuild, strings.Join(t.buildCmd, " "), err)
	}

	t.logger.Debug("Build in %s exited %d after %s", dir, res.ExitCode, res.Duration.Round(time.Millisecond))
	return res, nil
}

// Start launches the run command in dir as a background process in its own
// process group with output captured. Spawn failures return agent.ErrProcess.
func (t *Toolchain) Start(ctx context.Context, dir string) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // cancellation passes through
	}
	if len(t.runCmd) == 0 {
		return nil, fmt.Errorf("%w: run command is empty", agent.ErrProcess)
	}

	cmd := exec.Command(t.runCmd[0], t.runCmd[1:]...) //nolint:gosec // configured toolchain command
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	out := newTailBuffer(t.outLimit)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %w", agent.ErrProcess, strings.Join(t.runCmd, " "), err)
	}

	t.logger.Info("Started %s (pid %d) in %s", strings.Join(t.runCmd, " "), cmd.Process.Pid, dir)
	return newProcess(cmd, out), nil
}
