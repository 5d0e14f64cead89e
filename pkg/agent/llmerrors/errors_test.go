package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"status 401", errors.New(`POST "https://api.openai.com/v1/chat/completions": 401 Unauthorized`), ErrorTypeAuth},
		{"status 429", errors.New("429 Too Many Requests"), ErrorTypeRateLimit},
		{"status 400", errors.New("400 Bad Request: max_tokens too big"), ErrorTypeBadPrompt},
		{"status 503", errors.New("503 Service Unavailable"), ErrorTypeTransient},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeTransient},
		{"connection refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), ErrorTypeTransient},
		{"model missing", errors.New(`model "llama9" not found, try pulling it first`), ErrorTypeBadPrompt},
		{"quota", errors.New("you exceeded your current quota"), ErrorTypeRateLimit},
		{"mystery", errors.New("something odd"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("test", tt.err)
			assert.Equal(t, tt.want, TypeOf(got), got.Error())
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyKeepsClassified(t *testing.T) {
	orig := NewError(ErrorTypeEmptyResponse, "nothing")
	assert.Same(t, orig, Classify("x", orig))
	assert.NoError(t, Classify("x", nil))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "rate_limit", ErrorTypeRateLimit.String())
	assert.Equal(t, "bad_prompt", ErrorTypeBadPrompt.String())
	assert.Equal(t, "invalid", ErrorType(42).String())
}

func TestSanitizePrompt(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, SanitizePrompt(short, 100))

	long := strings.Repeat("a", 500) + strings.Repeat("b", 500)
	out := SanitizePrompt(long, 200)
	assert.Contains(t, out, "[1000 chars, hash:")
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 100)))
}
