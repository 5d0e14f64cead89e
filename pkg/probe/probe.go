// Package probe runs the built server and checks its retained endpoints.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"autodev/pkg/agent"
	"autodev/pkg/logx"
	"autodev/pkg/metrics"
	"autodev/pkg/project"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultWarmupDelay = 5 * time.Second

	pollInterval = 100 * time.Millisecond
	dialTimeout  = 250 * time.Millisecond
)

// Server is a running server process.
type Server interface {
	Terminate() error
	Output() string
}

// Launcher starts the server.
type Launcher interface {
	Launch(ctx context.Context) (Server, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Server, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context) (Server, error) { return f(ctx) }

// Checker reports the HTTP status of a GET request.
type Checker interface {
	Status(ctx context.Context, url string) (int, error)
}

// EndpointSaver persists the extracted endpoint schema.
type EndpointSaver interface {
	SaveEndpoints(schema string) error
}

// Config tunes a ServiceProbe.
type Config struct {
	BaseURL     string
	WarmupDelay time.Duration
	// ReadinessPoll ends the warm-up early once the server port accepts connections.
	ReadinessPoll bool
}

// Outcome is the result of probing one route.
type Outcome struct {
	Route  string
	URL    string
	Status int
	Err    error
}

// OK reports a 2xx response.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Status >= 200 && o.Status < 300
}

// Report summarizes a probe run. Aborted is set when a transport error stopped probing.
type Report struct {
	Probed  []Outcome
	Aborted bool
}

// ServiceProbe starts the server, waits for it to warm up and probes each route.
type ServiceProbe struct {
	launcher Launcher
	checker  Checker
	saver    EndpointSaver
	observer agent.Observer
	metrics  *metrics.Pipeline
	position string
	cfg      Config
	logger   *logx.Logger
}

// Option configures a ServiceProbe.
type Option func(*ServiceProbe)

// WithObserver reports progress to obs under position.
func WithObserver(obs agent.Observer, position string) Option {
	return func(p *ServiceProbe) {
		p.observer = obs
		p.position = position
	}
}

// WithMetrics records probe outcomes.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(p *ServiceProbe) { p.metrics = m }
}

// New returns a ServiceProbe.
func New(launcher Launcher, checker Checker, saver EndpointSaver, cfg Config, opts ...Option) *ServiceProbe {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.WarmupDelay <= 0 {
		cfg.WarmupDelay = DefaultWarmupDelay
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	p := &ServiceProbe{
		launcher: launcher,
		checker:  checker,
		saver:    saver,
		observer: agent.NopObserver(),
		cfg:      cfg,
		logger:   logx.NewLogger("probe"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ServiceProbe) report(kind agent.MessageKind, format string, args ...any) {
	p.observer.Report(p.position, kind, fmt.Sprintf(format, args...))
}

// Run starts the server, probes routes and persists schema, the unfiltered
// endpoint text. The server is terminated exactly once on every path. Non-2xx
// responses are warnings; a transport error stops probing and sets
// Report.Aborted without failing the run.
func (p *ServiceProbe) Run(ctx context.Context, routes []project.RouteDescriptor, schema string) (report Report, err error) {
	p.report(agent.MessageUnitTest, "Backend Code Unit Testing: starting web server...")

	srv, err := p.launcher.Launch(ctx)
	if err != nil {
		if errors.Is(err, agent.ErrProcess) || ctx.Err() != nil {
			return report, err
		}
		return report, fmt.Errorf("%w: %w", agent.ErrProcess, err)
	}

	stop := sync.OnceValue(srv.Terminate)
	defer func() {
		if termErr := stop(); termErr != nil && err == nil {
			err = termErr
		}
		logx.Debug(ctx, "probe", "server output:\n%s", srv.Output())
	}()

	p.report(agent.MessageUnitTest, "Backend Code Unit Testing: launching tests on server in %s...", p.cfg.WarmupDelay)
	if err := p.warmUp(ctx); err != nil {
		return report, err
	}

	for _, route := range routes {
		target := p.cfg.BaseURL + route.Route
		p.report(agent.MessageUnitTest, "Testing endpoint '%s'...", route.Route)

		status, checkErr := p.checker.Status(ctx, target)
		outcome := Outcome{Route: route.Route, URL: target, Status: status, Err: checkErr}
		report.Probed = append(report.Probed, outcome)

		if checkErr != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			p.metrics.ObserveProbe(metrics.OutcomeTransport)
			report.Aborted = true
			if termErr := stop(); termErr != nil {
				p.logger.Error("Failed to stop server after transport error: %v", termErr)
			}
			p.report(agent.MessageIssue, "Error checking backend %s: %v", target, checkErr)
			break
		}

		if !outcome.OK() {
			p.metrics.ObserveProbe(metrics.OutcomeWarning)
			p.report(agent.MessageIssue, "WARNING: Failed to call backend url endpoint %s %d", target, status)
			continue
		}
		p.metrics.ObserveProbe(metrics.OutcomeSuccess)
	}

	if err := p.saver.SaveEndpoints(schema); err != nil {
		return report, fmt.Errorf("failed to save api endpoints: %w", err)
	}

	p.report(agent.MessageUnitTest, "Backend testing complete...")
	return report, nil
}

// warmUp waits WarmupDelay. With ReadinessPoll it returns as soon as the
// server's port accepts a TCP connection; the wait is never longer than WarmupDelay.
func (p *ServiceProbe) warmUp(ctx context.Context) error {
	deadline := time.NewTimer(p.cfg.WarmupDelay)
	defer deadline.Stop()

	var tick <-chan time.Time
	addr := ""
	if p.cfg.ReadinessPoll {
		addr = dialAddr(p.cfg.BaseURL)
		if addr != "" {
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()
			tick = ticker.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // cancellation passes through
		case <-deadline.C:
			return nil
		case <-tick:
			conn, err := net.DialTimeout("tcp", addr, dialTimeout)
			if err == nil {
				_ = conn.Close()
				logx.Debug(ctx, "probe", "server ready at %s", addr)
				return nil
			}
		}
	}
}

// dialAddr returns host:port for base, filling in the scheme default port.
func dialAddr(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}
