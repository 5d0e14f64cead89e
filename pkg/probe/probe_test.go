package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"autodev/pkg/agent"
	"autodev/pkg/build"
	"autodev/pkg/httpcheck"
	"autodev/pkg/project"
)

type fakeServer struct {
	mu         sync.Mutex
	terminates int
	err        error
}

func (s *fakeServer) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminates++
	return s.err
}

func (s *fakeServer) Output() string { return "listening on :8080\n" }

func (s *fakeServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminates
}

type scriptedChecker struct {
	responses map[string]int
	failures  map[string]error
	calls     []string
}

func (c *scriptedChecker) Status(_ context.Context, url string) (int, error) {
	c.calls = append(c.calls, url)
	if err, ok := c.failures[url]; ok {
		return 0, err
	}
	if status, ok := c.responses[url]; ok {
		return status, nil
	}
	return http.StatusOK, nil
}

type memorySaver struct {
	saved []string
	err   error
}

func (s *memorySaver) SaveEndpoints(schema string) error {
	s.saved = append(s.saved, schema)
	return s.err
}

func routes(paths ...string) []project.RouteDescriptor {
	out := make([]project.RouteDescriptor, 0, len(paths))
	for _, p := range paths {
		out = append(out, project.RouteDescriptor{Route: p, Method: http.MethodGet})
	}
	return out
}

var fastConfig = Config{BaseURL: "http://localhost:8080", WarmupDelay: time.Millisecond}

func launcherFor(srv *fakeServer) Launcher {
	return LauncherFunc(func(context.Context) (Server, error) { return srv, nil })
}

func TestRunProbesEveryRoute(t *testing.T) {
	srv := &fakeServer{}
	checker := &scriptedChecker{responses: map[string]int{"http://localhost:8080/missing": http.StatusNotFound}}
	saver := &memorySaver{}

	var messages []string
	obs := agent.ObserverFunc(func(_ string, kind agent.MessageKind, msg string) {
		messages = append(messages, kind.String()+": "+msg)
	})

	p := New(launcherFor(srv), checker, saver, fastConfig, WithObserver(obs, "Backend Developer"))
	report, err := p.Run(context.Background(), routes("/status", "/missing", "/items"), `[{"route":"/status"}]`)
	require.NoError(t, err)

	assert.False(t, report.Aborted)
	require.Len(t, report.Probed, 3)
	assert.True(t, report.Probed[0].OK())
	assert.False(t, report.Probed[1].OK())
	assert.Equal(t, http.StatusNotFound, report.Probed[1].Status)
	assert.True(t, report.Probed[2].OK())

	assert.Equal(t, []string{`[{"route":"/status"}]`}, saver.saved)
	assert.Equal(t, 1, srv.count())
	assert.Contains(t, messages, "issue: WARNING: Failed to call backend url endpoint http://localhost:8080/missing 404")
	assert.Contains(t, messages, "unit_test: Backend testing complete...")
}

func TestTransportErrorStopsProbing(t *testing.T) {
	srv := &fakeServer{}
	checker := &scriptedChecker{failures: map[string]error{
		"http://localhost:8080/b": fmt.Errorf("%w: connection refused", agent.ErrTransport),
	}}
	saver := &memorySaver{}

	report, err := New(launcherFor(srv), checker, saver, fastConfig).
		Run(context.Background(), routes("/a", "/b", "/c"), "[]")
	require.NoError(t, err, "a probe transport error does not fail the stage")

	assert.True(t, report.Aborted)
	assert.Len(t, report.Probed, 2)
	assert.Equal(t, []string{"http://localhost:8080/a", "http://localhost:8080/b"}, checker.calls)
	assert.Equal(t, []string{"[]"}, saver.saved, "schema is still persisted")
	assert.Equal(t, 1, srv.count(), "terminated once despite the early stop")
}

func TestLaunchFailureIsProcessError(t *testing.T) {
	launcher := LauncherFunc(func(context.Context) (Server, error) { return nil, errors.New("no such file") })
	saver := &memorySaver{}

	_, err := New(launcher, &scriptedChecker{}, saver, fastConfig).Run(context.Background(), routes("/a"), "[]")
	assert.ErrorIs(t, err, agent.ErrProcess)
	assert.Empty(t, saver.saved)
}

func TestTerminateFailureIsFatal(t *testing.T) {
	killErr := fmt.Errorf("%w: kill failed", agent.ErrProcess)
	srv := &fakeServer{err: killErr}

	_, err := New(launcherFor(srv), &scriptedChecker{}, &memorySaver{}, fastConfig).
		Run(context.Background(), routes("/a"), "[]")
	assert.ErrorIs(t, err, agent.ErrProcess)
	assert.Equal(t, 1, srv.count())
}

func TestSaveFailureStillTerminates(t *testing.T) {
	srv := &fakeServer{}
	saver := &memorySaver{err: errors.New("disk full")}

	_, err := New(launcherFor(srv), &scriptedChecker{}, saver, fastConfig).Run(context.Background(), routes("/a"), "[]")
	require.Error(t, err)
	assert.Equal(t, 1, srv.count())
}

func TestCancelDuringWarmupTerminates(t *testing.T) {
	srv := &fakeServer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{WarmupDelay: time.Hour}
	_, err := New(launcherFor(srv), &scriptedChecker{}, &memorySaver{}, cfg).Run(ctx, routes("/a"), "[]")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, srv.count())
}

func TestReadinessPollEndsWarmupEarly(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := New(launcherFor(&fakeServer{}), &scriptedChecker{}, &memorySaver{}, Config{
		BaseURL:       "http://" + ln.Addr().String(),
		WarmupDelay:   10 * time.Second,
		ReadinessPoll: true,
	})

	start := time.Now()
	require.NoError(t, p.warmUp(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReadinessPollBoundedByWarmup(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := New(launcherFor(&fakeServer{}), &scriptedChecker{}, &memorySaver{}, Config{
		BaseURL:       "http://" + addr,
		WarmupDelay:   300 * time.Millisecond,
		ReadinessPoll: true,
	})

	start := time.Now()
	require.NoError(t, p.warmUp(context.Background()))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestDialAddr(t *testing.T) {
	assert.Equal(t, "localhost:8080", dialAddr("http://localhost:8080"))
	assert.Equal(t, "example.com:80", dialAddr("http://example.com"))
	assert.Equal(t, "example.com:443", dialAddr("https://example.com/api"))
	assert.Equal(t, "", dialAddr("::not a url"))
}

func TestRunWithRealProcess(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/status" {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer api.Close()

	tc := build.NewToolchain(build.NewMockExecutor(), nil, []string{"sh", "-c", "echo serving; sleep 30"})
	dir := t.TempDir()

	var proc *build.Process
	launcher := LauncherFunc(func(ctx context.Context) (Server, error) {
		p, err := tc.Start(ctx, dir)
		if err != nil {
			return nil, err
		}
		proc = p
		return p, nil
	})

	p := New(launcher, httpcheck.New(time.Second), &memorySaver{}, Config{
		BaseURL:     api.URL,
		WarmupDelay: 20 * time.Millisecond,
	})

	report, err := p.Run(context.Background(), routes("/status", "/nope"), "[]")
	require.NoError(t, err)
	require.Len(t, report.Probed, 2)
	assert.True(t, report.Probed[0].OK())
	assert.Equal(t, http.StatusNotFound, report.Probed[1].Status)

	require.NotNil(t, proc)
	assert.True(t, proc.Exited())
	assert.True(t, strings.HasPrefix(proc.Output(), "serving"))
}
