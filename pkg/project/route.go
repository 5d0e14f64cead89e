package project

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// RouteDescriptor describes one REST endpoint of the generated server.
//
// On the wire the dynamic flag is "is_route_dynamic" and generators emit it
// either as the strings "true"/"false" or as a JSON bool.
type RouteDescriptor struct {
	Route       string          `json:"route"`
	IsDynamic   bool            `json:"-"`
	Method      string          `json:"method"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
}

type routeWire struct {
	Route          string          `json:"route"`
	IsRouteDynamic json.RawMessage `json:"is_route_dynamic,omitempty"`
	Method         string          `json:"method"`
	RequestBody    json.RawMessage `json:"request_body,omitempty"`
	Response       json.RawMessage `json:"response,omitempty"`
}

// placeholderPattern matches "{id}", ":id", "<id>" and "*" wildcard path parameters.
var placeholderPattern = regexp.MustCompile(`\{[^/{}]+\}|/:[^/]+|<[^/<>]+>|\*`)

// HasPlaceholder reports whether route contains a path parameter.
func HasPlaceholder(route string) bool {
	return placeholderPattern.MatchString(route)
}

// UnmarshalJSON decodes the generator format. A route is dynamic when the generator
// declares it so or when it has a placeholder; a declared flag that is not a bool
// or "true"/"false" is a decode error.
func (r *RouteDescriptor) UnmarshalJSON(data []byte) error {
	var w routeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	declared := false
	if len(w.IsRouteDynamic) > 0 && string(w.IsRouteDynamic) != "null" {
		var err error
		if declared, err = parseFlag(w.IsRouteDynamic); err != nil {
			return fmt.Errorf("route %q: %w", w.Route, err)
		}
	}
	*r = RouteDescriptor{
		Route:       w.Route,
		IsDynamic:   declared || HasPlaceholder(w.Route),
		Method:      strings.ToUpper(strings.TrimSpace(w.Method)),
		RequestBody: w.RequestBody,
		Response:    w.Response,
	}
	return nil
}

// MarshalJSON writes the flag as a "true"/"false" string, the form generators are prompted with.
func (r RouteDescriptor) MarshalJSON() ([]byte, error) {
	flag, _ := json.Marshal(strconv.FormatBool(r.IsDynamic))
	return json.Marshal(routeWire{
		Route:          r.Route,
		IsRouteDynamic: flag,
		Method:         r.Method,
		RequestBody:    r.RequestBody,
		Response:       r.Response,
	})
}

func parseFlag(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("is_route_dynamic must be a bool or string, got %s", raw)
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("is_route_dynamic: %q is not a boolean", s)
	}
	return b, nil
}

// ParseRoutes decodes a JSON array of route descriptors.
func ParseRoutes(data []byte) ([]RouteDescriptor, error) {
	var routes []RouteDescriptor
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// Probeable reports whether a route can be called without arguments or side effects.
func (r RouteDescriptor) Probeable() bool {
	return strings.EqualFold(r.Method, http.MethodGet) && !r.IsDynamic
}

// FilterProbeable returns the GET routes without path parameters, in input order.
// Applying it to its own output returns the same list.
func FilterProbeable(routes []RouteDescriptor) []RouteDescriptor {
	out := make([]RouteDescriptor, 0, len(routes))
	for _, r := range routes {
		if r.Probeable() {
			r.Method = http.MethodGet
			out = append(out, r)
		}
	}
	return out
}
