// Package kernel wires the shared infrastructure of a pipeline run: config,
// run history database, metrics registry, generator, toolchain, console and
// artifact store.
package kernel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autodev/pkg/agent"
	"autodev/pkg/agent/llm"
	llmmetrics "autodev/pkg/agent/middleware/metrics"
	"autodev/pkg/architect"
	"autodev/pkg/artifacts"
	"autodev/pkg/build"
	"autodev/pkg/coder"
	"autodev/pkg/config"
	"autodev/pkg/console"
	"autodev/pkg/generate"
	"autodev/pkg/httpcheck"
	"autodev/pkg/logx"
	"autodev/pkg/metrics"
	"autodev/pkg/orchestrator"
	"autodev/pkg/persistence"
	"autodev/pkg/probe"
	"autodev/pkg/templates"
)

// Options are the process-level inputs of a Kernel.
type Options struct {
	In  io.Reader
	Out io.Writer
	// AssumeYes pre-approves running generated code.
	AssumeYes bool
	// Interactive reports whether In is attached to an operator.
	Interactive bool
	// Client replaces the configured model client.
	Client llm.LLMClient
	// Executor replaces the host build executor.
	Executor build.Executor
}

// Kernel owns the infrastructure shared by the orchestrator and its stages.
type Kernel struct {
	Config *config.Config
	Logger *logx.Logger

	Database   *sql.DB
	History    *persistence.DatabaseOperations
	Registry   *prometheus.Registry
	Metrics    *metrics.Pipeline
	LLMFactory *agent.LLMClientFactory
	Generator  *generate.Generator
	Toolchain  *build.Toolchain
	Checker    *httpcheck.Checker
	Store      *artifacts.Store
	Printer    *console.Printer
	Prompter   *console.Prompter
	Confirmer  *console.Confirmer

	metricsServer *http.Server
	serveDone     chan struct{}

	stageMu sync.RWMutex
	stage   string

	workDir string
	running bool
}

// NewKernel creates the shared services for cfg rooted at workDir.
func NewKernel(cfg *config.Config, workDir string, opts Options) (*Kernel, error) {
	k := &Kernel{
		Config:  cfg,
		Logger:  logx.NewLogger("kernel"),
		workDir: workDir,
	}

	if err := k.initializeServices(opts); err != nil {
		if k.Database != nil {
			_ = k.Database.Close()
		}
		return nil, fmt.Errorf("failed to initialize kernel services: %w", err)
	}
	return k, nil
}

func (k *Kernel) initializeServices(opts Options) error {
	if err := k.initializeDatabase(); err != nil {
		return err
	}

	k.Registry = prometheus.NewRegistry()
	k.Metrics = metrics.NewPipeline(k.Registry)

	k.Printer = console.NewPrinter(opts.Out)
	k.Prompter = console.NewPrompter(opts.In, k.Printer)
	k.Confirmer = console.NewConfirmer(k.Prompter, console.ConfirmerOptions{
		AssumeYes:   opts.AssumeYes,
		Interactive: opts.Interactive,
	})

	client := opts.Client
	if client == nil {
		k.LLMFactory = agent.NewLLMClientFactory(*k.Config, llmmetrics.NewPrometheusRecorder(k.Registry))
		var err error
		client, err = k.LLMFactory.CreateClient(k.CurrentStage)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load prompt functions: %w", err)
	}
	k.Generator = generate.New(client, renderer, generate.Options{
		Observer:    k.Printer,
		Data:        templates.DefaultFunctionData(),
		MaxTokens:   k.Config.LLM.MaxTokens,
		Temperature: k.Config.LLM.Temperature,
	})

	executor := opts.Executor
	if executor == nil {
		executor = build.NewHostExecutor()
	}
	k.Toolchain = build.NewToolchain(executor, k.Config.Project.BuildCommand, k.Config.Project.RunCommand)
	k.Checker = httpcheck.New(k.Config.Project.HTTPTimeout)
	k.Store = artifacts.NewStore(k.workDir, k.Config.Project)

	k.Logger.Info("Kernel services initialized")
	return nil
}

// initializeDatabase opens the run history database.
func (k *Kernel) initializeDatabase() error {
	dbPath := k.Config.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(k.workDir, dbPath)
	}

	db, err := persistence.InitializeDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	k.Database = db
	k.History = persistence.NewDatabaseOperations(db)

	k.Logger.Debug("Run history database: %s", dbPath)
	return nil
}

// Start prepares the project layout and serves metrics when an address is configured.
func (k *Kernel) Start() error {
	if k.running {
		return errors.New("kernel already running")
	}
	if err := k.Store.Prepare(); err != nil {
		return fmt.Errorf("failed to prepare project layout: %w", err)
	}
	if addr := k.Config.Metrics.ListenAddr; addr != "" {
		k.startMetricsServer(addr)
	}
	k.running = true
	return nil
}

func (k *Kernel) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(k.Registry, promhttp.HandlerOpts{Registry: k.Registry}))

	k.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	k.serveDone = make(chan struct{})

	go func() {
		defer close(k.serveDone)
		k.Logger.Info("Serving metrics on %s/metrics", addr)
		if err := k.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			k.Logger.Error("Metrics server failed: %v", err)
		}
	}()
}

// Stop shuts the metrics server down and closes the database.
func (k *Kernel) Stop() error {
	var errs []error
	if k.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := k.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
		<-k.serveDone
		k.metricsServer = nil
	}
	if k.Database != nil {
		if err := k.Database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		k.Database = nil
	}
	k.running = false
	return errors.Join(errs...)
}

// SetStage records the position currently calling the model.
func (k *Kernel) SetStage(position string) {
	k.stageMu.Lock()
	defer k.stageMu.Unlock()
	k.stage = position
}

// CurrentStage returns the position currently calling the model.
func (k *Kernel) CurrentStage() string {
	k.stageMu.RLock()
	defer k.stageMu.RUnlock()
	if k.stage == "" {
		return "none"
	}
	return k.stage
}

// Stages builds the architect and backend developer stages for one run.
func (k *Kernel) Stages(rec *persistence.Recorder) ([]agent.Stage, error) {
	arch, err := architect.NewDriver(architect.Deps{
		Completer:   k.Generator,
		Checker:     k.Checker,
		Observer:    k.Printer,
		Metrics:     k.Metrics,
		Transitions: rec.Transition,
	})
	if err != nil {
		return nil, err
	}

	prober := probe.New(k.launcher(), k.Checker, k.Store, probe.Config{
		BaseURL:       k.Config.Project.ProbeBaseURL,
		WarmupDelay:   k.Config.Project.WarmupDelay,
		ReadinessPoll: k.Config.Project.ReadinessPoll,
	}, probe.WithObserver(k.Printer, coder.Position), probe.WithMetrics(k.Metrics))

	dev, err := coder.NewDriver(coder.Deps{
		Completer:   k.Generator,
		Builder:     k.Toolchain,
		Prober:      prober,
		Confirmer:   k.Confirmer,
		Workspace:   k.Store,
		Observer:    k.Printer,
		Metrics:     k.Metrics,
		History:     rec,
		Transitions: rec.Transition,
		MaxRepairs:  k.Config.Project.MaxRepairs,
	})
	if err != nil {
		return nil, err
	}

	return []agent.Stage{arch, dev}, nil
}

// launcher starts the built server from the project directory.
func (k *Kernel) launcher() probe.Launcher {
	return probe.LauncherFunc(func(ctx context.Context) (probe.Server, error) {
		proc, err := k.Toolchain.Start(ctx, k.Store.ServerDir())
		if err != nil {
			return nil, err
		}
		return proc, nil
	})
}

// Orchestrator returns an orchestrator running on the kernel's services.
func (k *Kernel) Orchestrator() (*orchestrator.Orchestrator, error) {
	return orchestrator.New(orchestrator.Deps{ //nolint:wrapcheck // constructor errors are descriptive
		Completer: k.Generator,
		Stages:    k,
		Artifacts: k.Store,
		History:   k.History,
		Gatherer:  k.Registry,
		Metrics:   k.Metrics,
		Observer:  k.Printer,
		OnStage:   k.SetStage,
		Model:     k.Config.LLM.Model,
	})
}
