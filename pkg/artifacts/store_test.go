package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodev/pkg/config"
	"autodev/pkg/project"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewStore(dir, config.Default().Project)
	require.NoError(t, s.Prepare())
	return s, dir
}

func TestPrepareCreatesLayout(t *testing.T) {
	s, dir := newStore(t)

	assert.Equal(t, filepath.Join(dir, "web_template"), s.ServerDir())
	assert.Equal(t, filepath.Join(dir, "web_template", "main.go"), s.SourcePath())
	assert.DirExists(t, filepath.Join(dir, "artifacts"))

	mod, err := os.ReadFile(filepath.Join(s.ServerDir(), "go.mod"))
	require.NoError(t, err)
	assert.Contains(t, string(mod), "module webserver")
}

func TestPrepareKeepsExistingModule(t *testing.T) {
	dir := t.TempDir()
	serverDir := filepath.Join(dir, "web_template")
	require.NoError(t, os.MkdirAll(serverDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(serverDir, "go.mod"), []byte("module custom\n"), 0644))

	s := NewStore(dir, config.Default().Project)
	require.NoError(t, s.Prepare())

	mod, err := os.ReadFile(filepath.Join(serverDir, "go.mod"))
	require.NoError(t, err)
	assert.Equal(t, "module custom\n", string(mod))
}

func TestBackendCodeOverwrite(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.ReadBackendCode()
	require.Error(t, err)

	require.NoError(t, s.SaveBackendCode("package main // v1\n"))
	require.NoError(t, s.SaveBackendCode("package main // v2\n"))

	code, err := s.ReadBackendCode()
	require.NoError(t, err)
	assert.Equal(t, "package main // v2\n", code)

	entries, err := os.ReadDir(s.ServerDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".main.go.", "temp file left behind")
	}
}

func TestSaveEndpoints(t *testing.T) {
	s, dir := newStore(t)

	require.NoError(t, s.SaveEndpoints(`[{"route":"/status","method":"get"}]`))
	data, err := os.ReadFile(filepath.Join(dir, "artifacts", EndpointsFile))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"route\": \"/status\",\n    \"method\": \"get\"\n  }\n]\n", string(data))

	require.NoError(t, s.SaveEndpoints("not json"))
	data, err = os.ReadFile(filepath.Join(dir, "artifacts", EndpointsFile))
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}

func TestCodeTemplate(t *testing.T) {
	s, dir := newStore(t)

	embedded, err := s.CodeTemplate()
	require.NoError(t, err)
	assert.Contains(t, embedded, "package main")

	cfg := config.Default().Project
	cfg.TemplatePath = "my_template.go"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my_template.go"), []byte("package custom\n"), 0644))

	custom, err := NewStore(dir, cfg).CodeTemplate()
	require.NoError(t, err)
	assert.Equal(t, "package custom\n", custom)
}

func TestSaveMetricsAndDocument(t *testing.T) {
	s, dir := newStore(t)

	require.NoError(t, s.SaveMetrics([]byte("autodev_build_attempts_total 1\n")))
	require.FileExists(t, filepath.Join(dir, "artifacts", MetricsFile))

	doc := project.New("a todo api")
	require.NoError(t, s.SaveDocument(doc))
	data, err := os.ReadFile(filepath.Join(dir, "artifacts", DocumentFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a todo api")
}
