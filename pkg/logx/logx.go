// Package logx provides agent-scoped structured logging with context-aware debug logging.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	agentID string
}

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Options controls the process-wide log sink.
type Options struct {
	// Output receives log lines. Defaults to stderr.
	Output io.Writer
	// JSON switches from the console encoder to JSON lines.
	JSON bool
	// Debug enables debug level for all domains allowed by DEBUG_DOMAINS.
	Debug bool
	// File, when set, mirrors every line to this path.
	File string
}

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // Which domains to enable debug for (nil = all)
}

type ctxKey struct{}

//nolint:gochecknoglobals // process-wide sink shared by every Logger
var (
	sinkMu sync.RWMutex
	sink   *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	debugConfig = &DebugConfig{}
	debugMutex  sync.RWMutex
)

func init() { //nolint:gochecknoinits // Required for env var initialization
	initDebugFromEnv()
	sink = build(Options{Output: os.Stderr})
}

// initDebugFromEnv reads DEBUG, DEBUG_DOMAINS and DEBUG_FILE.
func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
		level.SetLevel(zapcore.DebugLevel)
	}

	// DEBUG_DOMAINS=architect,coder,probe
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			debugConfig.Domains[strings.TrimSpace(domain)] = true
		}
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + name + "]")
	}
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	return cfg
}

func build(opts Options) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(out), level)}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err == nil {
			if f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(f), level))
			}
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}

// Configure replaces the process-wide sink. Loggers created earlier pick up the change.
func Configure(opts Options) {
	debugMutex.Lock()
	if opts.Debug {
		debugConfig.Enabled = true
	}
	enabled := debugConfig.Enabled
	debugMutex.Unlock()

	if enabled {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}

	next := build(opts)

	sinkMu.Lock()
	prev := sink
	sink = next
	sinkMu.Unlock()

	if prev != nil {
		_ = prev.Sync()
	}
}

// Sync flushes buffered log output.
func Sync() {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	_ = sink.Sync()
}

// SetDebugDomains configures which domains should have debug logging enabled.
func SetDebugDomains(domains []string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if len(domains) == 0 {
		debugConfig.Domains = nil // Enable all domains
		return
	}
	debugConfig.Domains = make(map[string]bool)
	for _, domain := range domains {
		debugConfig.Domains[strings.TrimSpace(domain)] = true
	}
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

func NewLogger(agentID string) *Logger {
	return &Logger{agentID: agentID}
}

func (l *Logger) named() *zap.SugaredLogger {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink.Named(l.agentID).Sugar()
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.named().Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.named().Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.named().Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.named().Errorf(format, args...)
}

// DebugState logs state transition information.
func (l *Logger) DebugState(action, state string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = fmt.Sprintf(" - %s", extra[0])
	}
	l.Debug("State %s: %s%s", action, state, extraInfo)
}

func (l *Logger) GetAgentID() string {
	return l.agentID
}

// WithAgent returns a context carrying agentID for the package-level Debug helpers.
func WithAgent(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, agentID)
}

func agentFrom(ctx context.Context) string {
	if ctx != nil {
		if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
			return id
		}
	}
	return "unknown"
}

// Debug logs a debug message with context and domain filtering.
//
// Environment variable control:
//
//	DEBUG=1                                # Enable debug for all domains
//	DEBUG=1 DEBUG_DOMAINS=coder            # Enable debug only for coder domain
//	DEBUG=1 DEBUG_DOMAINS=architect,probe  # Enable debug for multiple domains
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	NewLogger(agentFrom(ctx)).named().Debugw(fmt.Sprintf(format, args...), "domain", domain)
}

// defaultLogger reports errors wrapped at command boundaries.
var defaultLogger = NewLogger("system") //nolint:gochecknoglobals

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
//
//	if err != nil { return logx.Wrap(err, "db connect") }
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
