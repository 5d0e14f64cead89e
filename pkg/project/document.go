// Package project holds the shared project document that flows through the
// pipeline stages, and the route schema extracted from generated code.
package project

import "encoding/json"

// ProjectScope is the architect's assessment of what the requested backend needs.
type ProjectScope struct {
	RequiresExternalURLs bool `json:"is_external_urls_required"`
	RequiresLogin        bool `json:"is_requiring_login_and_logout"`
	RequiresCRUD         bool `json:"is_crud_required"`
}

// Document is the single mutable record of a pipeline run. It is owned by the
// orchestrator and handed by pointer to one stage at a time, so it has no locks.
type Document struct {
	// ProjectDescription is set at creation and never changed.
	ProjectDescription string `json:"project_description"`
	// ProjectScope is written once by the architect stage.
	ProjectScope *ProjectScope `json:"project_scope,omitempty"`
	// ExternalURLs is nil when no URLs were requested. Filtering keeps order.
	ExternalURLs []string `json:"external_urls,omitempty"`
	// BackendCode always holds the latest generation or repair attempt.
	BackendCode *string `json:"backend_code,omitempty"`
	// APIEndpointSchema is the probeable subset, written once after a successful build.
	APIEndpointSchema []RouteDescriptor `json:"api_endpoint_schema,omitempty"`
}

// New returns a document with only the description populated.
func New(description string) *Document {
	return &Document{ProjectDescription: description}
}

// SetBackendCode replaces the current code with the latest attempt.
func (d *Document) SetBackendCode(code string) {
	d.BackendCode = &code
}

// Code returns the latest backend code, or "" when none has been generated.
func (d *Document) Code() string {
	if d.BackendCode == nil {
		return ""
	}
	return *d.BackendCode
}

// RemoveURLs drops every URL in excluded from ExternalURLs, keeping the order of the rest.
// An empty exclusion set leaves the list untouched.
func (d *Document) RemoveURLs(excluded []string) {
	if len(excluded) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(excluded))
	for _, u := range excluded {
		drop[u] = struct{}{}
	}
	kept := make([]string, 0, len(d.ExternalURLs))
	for _, u := range d.ExternalURLs {
		if _, ok := drop[u]; !ok {
			kept = append(kept, u)
		}
	}
	d.ExternalURLs = kept
}

// JSON renders the document for prompts and run history snapshots.
func (d *Document) JSON() string {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
