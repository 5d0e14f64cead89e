package build

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"autodev/pkg/agent"
)

// Process is a running server started by Toolchain.Start.
type Process struct {
	cmd *exec.Cmd
	out *tailBuffer

	done    chan struct{}
	waitErr error

	termOnce sync.Once
	termErr  error
}

func newProcess(cmd *exec.Cmd, out *tailBuffer) *Process {
	p := &Process{cmd: cmd, out: out, done: make(chan struct{})}
	go p.reap()
	return p
}

// reap waits for the child so it never lingers as a zombie.
func (p *Process) reap() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

// Pid returns the process id, which is also the process group id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits and returns its exit status.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// Output returns the most recent output of the process.
func (p *Process) Output() string {
	return p.out.String()
}

// Terminate kills the whole process group and waits for the child to exit.
// Only the first call signals the process; later calls return the first result.
// A process that already exited counts as terminated.
func (p *Process) Terminate() error {
	p.termOnce.Do(func() {
		p.termErr = p.kill()
	})
	return p.termErr
}

func (p *Process) kill() error {
	if p.Exited() {
		return nil
	}

	if err := syscall.Kill(-p.Pid(), syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("%w: failed to kill process group %d: %w", agent.ErrProcess, p.Pid(), err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(killGrace):
		return fmt.Errorf("%w: process %d did not exit within %s after SIGKILL", agent.ErrProcess, p.Pid(), killGrace)
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.limit {
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
