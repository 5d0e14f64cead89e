// Package utils holds token accounting shared by prompt generation and the LLM metrics middleware.
package utils

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// charsPerToken is the estimate used when no codec is available.
const charsPerToken = 4

// TokenCounter counts tokens for prompts, generated code and compiler output.
type TokenCounter struct {
	codec tokenizer.Codec
}

// legacyModels use the cl100k encoding; everything else is approximated with o200k.
//
//nolint:gochecknoglobals
var legacyModels = map[string]bool{
	"gpt-4":         true,
	"gpt-3.5-turbo": true,
}

// NewTokenCounter builds a counter for model. Anthropic, Gemini and Ollama models have no
// public tokenizer here, so their counts are estimates.
func NewTokenCounter(model string) (*TokenCounter, error) {
	encoding := tokenizer.GPT4o
	if legacyModels[strings.ToLower(model)] {
		encoding = tokenizer.GPT4
	}

	codec, err := tokenizer.ForModel(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer for %q: %w", model, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the token count of text. A nil counter estimates from length.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / charsPerToken
	}
	n, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / charsPerToken
	}
	return n
}

// TruncateToTokenLimit keeps the head of text so that it fits in roughly limit tokens.
// Compiler output puts the first errors first, which are the ones worth keeping.
func (tc *TokenCounter) TruncateToTokenLimit(text string, limit int) string {
	total := tc.CountTokens(text)
	if total <= limit {
		return text
	}

	keep := int(float64(len(text)) * float64(limit) / float64(total) * 0.9)
	if keep >= len(text) {
		return text
	}
	if cut := strings.LastIndexByte(text[:keep], '\n'); cut > 0 {
		keep = cut
	}
	return text[:keep] + "..."
}

//nolint:gochecknoglobals // codec tables are expensive to build
var (
	shared     *TokenCounter
	sharedOnce sync.Once
)

func sharedCounter() *TokenCounter {
	sharedOnce.Do(func() {
		shared, _ = NewTokenCounter("")
	})
	return shared
}

// CountTokensSimple counts tokens with the shared o200k counter.
func CountTokensSimple(text string) int {
	return sharedCounter().CountTokens(text)
}

// TruncateTokens is TruncateToTokenLimit on the shared counter.
func TruncateTokens(text string, limit int) string {
	return sharedCounter().TruncateToTokenLimit(text, limit)
}
