package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  package main\n", "package main"},
		{"go fence", "```go\npackage main\n\nfunc main() {}\n```", "package main\n\nfunc main() {}"},
		{"prose around fence", "Here you go:\n```\n{\"a\": 1}\n```\nEnjoy", "{\"a\": 1}"},
		{"unterminated", "```json\n[1, 2]", "[1, 2]"},
		{"first fence wins", "```\none\n```\n```\ntwo\n```", "one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}
