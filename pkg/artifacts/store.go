// Package artifacts persists generated source code, the extracted endpoint schema
// and run reports to the workspace.
package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"autodev/pkg/config"
	"autodev/pkg/project"
	"autodev/pkg/templates"
)

const (
	// EndpointsFile holds the unfiltered REST schema extracted from the last build.
	EndpointsFile = "api_endpoints.json"
	// MetricsFile holds the Prometheus text snapshot written at the end of a run.
	MetricsFile = "metrics.prom"
	// DocumentFile holds the final project document.
	DocumentFile = "project.json"

	// serverModule is written as go.mod of a fresh web server directory.
	serverModule = "module webserver\n\ngo 1.22\n"
)

// Store reads and writes run artifacts below a workspace directory.
type Store struct {
	serverDir    string
	sourcePath   string
	artifactsDir string
	templatePath string
}

// NewStore resolves the project layout against workDir.
func NewStore(workDir string, cfg config.ProjectConfig) *Store {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(workDir, p)
	}

	serverDir := resolve(cfg.WebServerDir)
	return &Store{
		serverDir:    serverDir,
		sourcePath:   filepath.Join(serverDir, cfg.SourcePath),
		artifactsDir: resolve(cfg.ArtifactsDir),
		templatePath: resolve(cfg.TemplatePath),
	}
}

// ServerDir is the directory the toolchain builds and runs in.
func (s *Store) ServerDir() string { return s.serverDir }

// SourcePath is the generated source file.
func (s *Store) SourcePath() string { return s.sourcePath }

// ArtifactsDir holds schema, metrics and document files.
func (s *Store) ArtifactsDir() string { return s.artifactsDir }

// Prepare creates the server and artifacts directories and gives the server
// directory a go.mod when it has none.
func (s *Store) Prepare() error {
	for _, dir := range []string{s.serverDir, filepath.Dir(s.sourcePath), s.artifactsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	modPath := filepath.Join(s.serverDir, "go.mod")
	if _, err := os.Stat(modPath); os.IsNotExist(err) {
		if err := os.WriteFile(modPath, []byte(serverModule), 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", modPath, err)
		}
	}
	return nil
}

// SaveBackendCode replaces the generated source file.
func (s *Store) SaveBackendCode(code string) error {
	return writeFileAtomic(s.sourcePath, []byte(code))
}

// ReadBackendCode returns the current generated source file.
func (s *Store) ReadBackendCode() (string, error) {
	data, err := os.ReadFile(s.sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to read backend code: %w", err)
	}
	return string(data), nil
}

// SaveEndpoints writes the extracted schema text. Valid JSON is indented; anything
// else is stored as received.
func (s *Store) SaveEndpoints(schema string) error {
	data := []byte(schema)
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err == nil {
		buf.WriteByte('\n')
		data = buf.Bytes()
	}
	return writeFileAtomic(filepath.Join(s.artifactsDir, EndpointsFile), data)
}

// CodeTemplate returns the configured code template, falling back to the embedded one.
func (s *Store) CodeTemplate() (string, error) {
	return templates.CodeTemplate(s.templatePath) //nolint:wrapcheck // already descriptive
}

// SaveMetrics writes a metrics snapshot.
func (s *Store) SaveMetrics(snapshot []byte) error {
	return writeFileAtomic(filepath.Join(s.artifactsDir, MetricsFile), snapshot)
}

// SaveDocument writes the project document as JSON.
func (s *Store) SaveDocument(doc *project.Document) error {
	return writeFileAtomic(filepath.Join(s.artifactsDir, DocumentFile), []byte(doc.JSON()+"\n"))
}

// writeFileAtomic writes through a temp file in the target directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
