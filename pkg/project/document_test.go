package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveURLsPreservesOrder(t *testing.T) {
	doc := New("weather dashboard")
	doc.ExternalURLs = []string{"https://a.example", "https://b.example", "https://c.example"}

	doc.RemoveURLs([]string{"https://b.example"})
	assert.Equal(t, []string{"https://a.example", "https://c.example"}, doc.ExternalURLs)
}

func TestRemoveURLsEmptySetIsNoop(t *testing.T) {
	doc := New("x")
	doc.ExternalURLs = []string{"u1", "u2"}
	doc.RemoveURLs(nil)
	assert.Equal(t, []string{"u1", "u2"}, doc.ExternalURLs)
}

func TestBackendCode(t *testing.T) {
	doc := New("todo api")
	assert.Equal(t, "", doc.Code())
	doc.SetBackendCode("package main")
	doc.SetBackendCode("package main // v2")
	assert.Equal(t, "package main // v2", doc.Code())
}

func TestDocumentJSON(t *testing.T) {
	doc := New("todo api")
	doc.ProjectScope = &ProjectScope{RequiresCRUD: true}
	out := doc.JSON()
	assert.Contains(t, out, `"project_description": "todo api"`)
	assert.Contains(t, out, `"is_crud_required": true`)
	assert.NotContains(t, out, "backend_code")
}
