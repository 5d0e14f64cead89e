package project

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extracted = `[
  {"route": "/status", "is_route_dynamic": "false", "method": "get", "request_body": "None", "response": {"status": "string"}},
  {"route": "/item/{id}", "is_route_dynamic": "true", "method": "delete", "request_body": "None", "response": "None"},
  {"route": "/items", "is_route_dynamic": false, "method": "POST", "request_body": {"name": "string"}, "response": {"id": "number"}},
  {"route": "/users/:id", "is_route_dynamic": "false", "method": "GET"},
  {"route": "/health", "method": "GET"}
]`

func TestParseRoutesNormalizesFlags(t *testing.T) {
	routes, err := ParseRoutes([]byte(extracted))
	require.NoError(t, err)
	require.Len(t, routes, 5)

	assert.False(t, routes[0].IsDynamic)
	assert.Equal(t, "GET", routes[0].Method)
	assert.True(t, routes[1].IsDynamic)
	assert.Equal(t, "DELETE", routes[1].Method)
	// Mislabelled as static, but the route has a parameter.
	assert.True(t, routes[3].IsDynamic)
	assert.False(t, routes[4].IsDynamic)
}

func TestDeclaredDynamicRouteIsNotProbed(t *testing.T) {
	routes, err := ParseRoutes([]byte(`[
  {"route": "/items/<id>", "is_route_dynamic": "true", "method": "GET"},
  {"route": "/users/*", "is_route_dynamic": "true", "method": "GET"},
  {"route": "/report", "is_route_dynamic": true, "method": "GET"},
  {"route": "/ping", "is_route_dynamic": "false", "method": "GET"}
]`))
	require.NoError(t, err)

	for _, r := range routes[:3] {
		assert.True(t, r.IsDynamic, r.Route)
	}
	got := FilterProbeable(routes)
	require.Len(t, got, 1)
	assert.Equal(t, "/ping", got[0].Route)
}

func TestParseRoutesRejectsBadFlag(t *testing.T) {
	_, err := ParseRoutes([]byte(`[{"route": "/a", "is_route_dynamic": "maybe", "method": "GET"}]`))
	assert.Error(t, err)

	_, err = ParseRoutes([]byte(`{"route": "/a"}`))
	assert.Error(t, err)
}

func TestFilterProbeable(t *testing.T) {
	routes, err := ParseRoutes([]byte(extracted))
	require.NoError(t, err)

	got := FilterProbeable(routes)
	var paths []string
	for _, r := range got {
		paths = append(paths, r.Route)
	}
	if diff := cmp.Diff([]string{"/status", "/health"}, paths); diff != "" {
		t.Errorf("probeable routes mismatch (-want +got):\n%s", diff)
	}

	again := FilterProbeable(got)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("filter is not idempotent (-first +second):\n%s", diff)
	}
}

func TestFilterProbeableStatusAndDelete(t *testing.T) {
	routes := []RouteDescriptor{
		{Route: "/status", Method: "GET"},
		{Route: "/item/{id}", Method: "DELETE", IsDynamic: true},
	}
	got := FilterProbeable(routes)
	require.Len(t, got, 1)
	assert.Equal(t, "/status", got[0].Route)
}

func TestFilterProbeableEmpty(t *testing.T) {
	assert.Empty(t, FilterProbeable(nil))
}

func TestHasPlaceholder(t *testing.T) {
	cases := map[string]bool{
		"/":                  false,
		"/tasks":             false,
		"/tasks/{id}":        true,
		"/tasks/:id/done":    true,
		"/weather?city=oslo": false,
		"/a:b":               false,
		"/items/<id>":        true,
		"/users/*":           true,
	}
	for route, want := range cases {
		assert.Equal(t, want, HasPlaceholder(route), route)
	}
}

func TestRouteMarshalUsesStringFlag(t *testing.T) {
	data, err := json.Marshal(RouteDescriptor{Route: "/x/{id}", IsDynamic: true, Method: "GET"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"is_route_dynamic":"true"`)

	var back RouteDescriptor
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsDynamic)
}
