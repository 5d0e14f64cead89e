// Package mocks provides shared mock implementations for tests.
//
//	client := mocks.NewMockLLMClient()
//	client.RespondByFunction(map[string]string{
//	    "print_project_scope": `{"is_external_urls_required": false}`,
//	})
//
// MockLLMClient stands in for a provider client behind the generator, so
// tests exercise prompt rendering, the retry middleware and code fence handling.
package mocks
