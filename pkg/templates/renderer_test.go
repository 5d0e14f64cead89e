package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	for _, fn := range AllFunctions() {
		out, err := renderer.Render(fn, DefaultFunctionData())
		require.NoError(t, err, "render %s", fn)
		assert.NotEmpty(t, strings.TrimSpace(out), "template %s rendered empty", fn)
	}
}

func TestRenderUnknownFunction(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	_, err = renderer.Render(Function("functions/missing.tpl.md"), DefaultFunctionData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCodePromptsCarryAllowList(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	data := FunctionData{ListenAddr: ":9999", Libraries: []string{"net/http", "encoding/json"}}
	for _, fn := range []Function{PrintBackendCode, PrintImprovedCode, PrintFixedCode} {
		out, err := renderer.Render(fn, data)
		require.NoError(t, err)
		assert.Contains(t, out, "    net/http\n")
		assert.Contains(t, out, "    encoding/json\n")
		assert.NotContains(t, out, "strconv")
	}

	out, err := renderer.Render(PrintBackendCode, data)
	require.NoError(t, err)
	assert.Contains(t, out, ":9999")
}

func TestEndpointPromptUsesStringFlag(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	out, err := renderer.Render(PrintRESTEndpoints, DefaultFunctionData())
	require.NoError(t, err)
	assert.Contains(t, out, `"is_route_dynamic": "true"`)
	assert.Contains(t, out, `"is_route_dynamic": "false"`)
}

func TestFunctionName(t *testing.T) {
	assert.Equal(t, "print_fixed_code", PrintFixedCode.Name())
	assert.Equal(t, "convert_user_input_to_goal", ConvertUserInputToGoal.Name())
}

func TestPrinterPrompt(t *testing.T) {
	prompt := PrinterPrompt(PrintSiteURLs, "  Lists urls.\n", "a weather dashboard")

	assert.True(t, strings.HasPrefix(prompt, "Function print_site_urls:\nLists urls.\n"))
	assert.Contains(t, prompt, "You are a function printer")
	assert.Contains(t, prompt, "Here is the input to the function: a weather dashboard")
}

func TestCodeTemplate(t *testing.T) {
	embedded, err := CodeTemplate("")
	require.NoError(t, err)
	assert.Contains(t, embedded, "package main")
	assert.Contains(t, embedded, `http.ListenAndServe(":8080"`)

	path := filepath.Join(t.TempDir(), "custom.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	custom, err := CodeTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", custom)

	_, err = CodeTemplate(filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
}
