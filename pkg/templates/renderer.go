// Package templates provides the prompt function catalog and the embedded web server code template.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed functions/*.tpl.md code/*.tmpl
var templateFS embed.FS

// Function names a prompt function in the catalog.
type Function string

const (
	// ConvertUserInputToGoal turns a raw user request into a project goal.
	ConvertUserInputToGoal Function = "functions/convert_user_input_to_goal.tpl.md"
	// PrintProjectScope classifies the project into a ProjectScope object.
	PrintProjectScope Function = "functions/print_project_scope.tpl.md"
	// PrintSiteURLs lists external API endpoints the backend depends on.
	PrintSiteURLs Function = "functions/print_site_urls.tpl.md"
	// PrintBackendCode writes the first draft of the server from the code template.
	PrintBackendCode Function = "functions/print_backend_webserver_code.tpl.md"
	// PrintImprovedCode completes features and removes bugs from the current draft.
	PrintImprovedCode Function = "functions/print_improved_webserver_code.tpl.md"
	// PrintFixedCode repairs code using compiler output.
	PrintFixedCode Function = "functions/print_fixed_code.tpl.md"
	// PrintRESTEndpoints extracts the REST surface of the built server as JSON.
	PrintRESTEndpoints Function = "functions/print_rest_api_endpoints.tpl.md"
)

// Name is the short name of the function as it appears in prompts and logs.
func (f Function) Name() string {
	name := strings.TrimPrefix(string(f), "functions/")
	return strings.TrimSuffix(name, ".tpl.md")
}

const codeTemplateFile = "code/main.go.tmpl"

// DefaultListenAddr is the address every generated server is told to listen on.
const DefaultListenAddr = ":8080"

// DefaultLibraries is the package allow-list given to code generation prompts.
//
//nolint:gochecknoglobals
var DefaultLibraries = []string{
	"net/http",
	"encoding/json",
	"sync",
	"os",
	"io",
	"log",
	"fmt",
	"strconv",
	"strings",
	"time",
	"errors",
	"context",
}

// FunctionData holds the values interpolated into prompt functions.
type FunctionData struct {
	ListenAddr string
	Libraries  []string
}

// DefaultFunctionData returns the listen address and library allow-list used by the pipeline.
func DefaultFunctionData() FunctionData {
	libs := make([]string, len(DefaultLibraries))
	copy(libs, DefaultLibraries)
	return FunctionData{ListenAddr: DefaultListenAddr, Libraries: libs}
}

// Renderer renders prompt functions.
type Renderer struct {
	templates map[Function]*template.Template
}

// AllFunctions lists every function in the catalog.
func AllFunctions() []Function {
	return []Function{
		ConvertUserInputToGoal,
		PrintProjectScope,
		PrintSiteURLs,
		PrintBackendCode,
		PrintImprovedCode,
		PrintFixedCode,
		PrintRESTEndpoints,
	}
}

// NewRenderer parses every embedded prompt function.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[Function]*template.Template),
	}

	for _, name := range AllFunctions() {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render renders the text of a prompt function.
func (r *Renderer) Render(fn Function, data FunctionData) (string, error) {
	tmpl, exists := r.templates[fn]
	if !exists {
		return "", fmt.Errorf("template %s not found", fn)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", fn, err)
	}

	return buf.String(), nil
}

// PrinterPrompt wraps a rendered function so the model answers only with the function's output.
func PrinterPrompt(fn Function, functionText, input string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Function %s:\n%s\n", fn.Name(), strings.TrimSpace(functionText))
	b.WriteString("Instruction: You are a function printer. You ONLY print the result of the function above. ")
	b.WriteString("Do not add commentary, explanations or greetings.\n")
	fmt.Fprintf(&b, "Here is the input to the function: %s\n", input)
	b.WriteString("Print out what the function returns.")
	return b.String()
}

// CodeTemplate returns the web server template. A non-empty path overrides the embedded copy.
func CodeTemplate(path string) (string, error) {
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read code template %s: %w", path, err)
		}
		return string(content), nil
	}

	content, err := templateFS.ReadFile(codeTemplateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", codeTemplateFile, err)
	}
	return string(content), nil
}
