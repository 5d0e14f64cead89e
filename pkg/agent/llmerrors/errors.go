// Package llmerrors classifies provider failures for logs and metrics, so that a dead
// API key can be told apart from a dropped connection.
package llmerrors

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType is the class of a provider failure.
type ErrorType int8

const (
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient covers 5xx, timeouts and broken connections.
	ErrorTypeTransient
	// ErrorTypeEmptyResponse is a successful call that produced no text.
	ErrorTypeEmptyResponse
	ErrorTypeAuth
	// ErrorTypeBadPrompt is a request the provider rejected as malformed: prompt too
	// long, unknown model, invalid parameters.
	ErrorTypeBadPrompt
	ErrorTypeUnknown
)

//nolint:gochecknoglobals
var typeNames = [...]string{
	ErrorTypeRateLimit:     "rate_limit",
	ErrorTypeTransient:     "transient",
	ErrorTypeEmptyResponse: "empty_response",
	ErrorTypeAuth:          "auth",
	ErrorTypeBadPrompt:     "bad_prompt",
	ErrorTypeUnknown:       "unknown",
}

func (t ErrorType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "invalid"
	}
	return typeNames[t]
}

// Error is a classified provider failure.
type Error struct {
	Err        error
	Message    string
	Type       ErrorType
	StatusCode int
}

func (e *Error) Error() string {
	detail := e.Message
	switch {
	case detail != "":
	case e.Err != nil:
		detail = e.Err.Error()
	default:
		detail = "status " + strconv.Itoa(e.StatusCode)
	}
	return fmt.Sprintf("LLM error (%s): %s", e.Type, detail)
}

func (e *Error) Unwrap() error { return e.Err }

func classified(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether err carries a classified error of type t.
func Is(err error, t ErrorType) bool {
	e, ok := classified(err)
	return ok && e.Type == t
}

// TypeOf returns the class of err, ErrorTypeUnknown when unclassified.
func TypeOf(err error) ErrorType {
	if e, ok := classified(err); ok {
		return e.Type
	}
	return ErrorTypeUnknown
}

func NewError(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

func NewErrorWithCause(t ErrorType, cause error, message string) *Error {
	return &Error{Type: t, Err: cause, Message: message}
}

type statusClass struct {
	typ    ErrorType
	suffix string
}

//nolint:gochecknoglobals
var statusClasses = map[int]statusClass{
	400: {ErrorTypeBadPrompt, "rejected the request"},
	401: {ErrorTypeAuth, "authentication failed - check API key"},
	403: {ErrorTypeAuth, "authentication failed - check API key"},
	404: {ErrorTypeBadPrompt, "rejected the request"},
	413: {ErrorTypeBadPrompt, "rejected the request"},
	422: {ErrorTypeBadPrompt, "rejected the request"},
	429: {ErrorTypeRateLimit, "rate limit exceeded"},
	500: {ErrorTypeTransient, "server error"},
	502: {ErrorTypeTransient, "server error"},
	503: {ErrorTypeTransient, "server error"},
	504: {ErrorTypeTransient, "server error"},
	529: {ErrorTypeTransient, "server error"}, // Anthropic "overloaded"
}

// SDK errors embed the status in text such as `POST "...": 429 Too Many Requests`.
var statusPattern = regexp.MustCompile(`\b([45]\d\d)\b`)

func statusIn(text string) int {
	m := statusPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

type textRule struct {
	match  func(lower string) bool
	typ    ErrorType
	suffix string
}

func anyOf(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// Rules apply in order; connection trouble wins over wording like "rate".
//
//nolint:gochecknoglobals
var textRules = []textRule{
	{anyOf("timeout", "connection", "network", "temporary", "eof", "reset"), ErrorTypeTransient, "network or connection error"},
	{anyOf("rate", "quota"), ErrorTypeRateLimit, "rate limiting detected"},
	{anyOf("unauthorized", "api key", "authentication"), ErrorTypeAuth, "authentication error"},
	{func(s string) bool { return strings.Contains(s, "model") && strings.Contains(s, "not found") }, ErrorTypeBadPrompt, "model not found"},
	{anyOf("invalid", "malformed", "too large"), ErrorTypeBadPrompt, "prompt or request error"},
}

// Classify wraps a raw provider error in an *Error. provider only appears in the
// message. Errors that are already classified pass through unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := classified(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorWithCause(ErrorTypeTransient, err, provider+" request timeout")
	case errors.Is(err, context.Canceled):
		return NewErrorWithCause(ErrorTypeTransient, err, provider+" request canceled")
	}

	text := err.Error()
	if code := statusIn(text); code != 0 {
		if c, ok := statusClasses[code]; ok {
			return &Error{Type: c.typ, StatusCode: code, Err: err, Message: provider + " " + c.suffix}
		}
	}

	lower := strings.ToLower(text)
	for _, r := range textRules {
		if r.match(lower) {
			return NewErrorWithCause(r.typ, err, provider+" "+r.suffix)
		}
	}
	return NewErrorWithCause(ErrorTypeUnknown, err, provider+" unclassified error")
}

// SanitizePrompt shortens a prompt for logs to its head and tail plus a hash of the
// whole text. Each side keeps at least 100 characters.
func SanitizePrompt(prompt string, maxChars int) string {
	side := max(maxChars/2, 100)
	if len(prompt) <= maxChars || 2*side >= len(prompt) {
		return prompt
	}
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("%s...[%d chars, hash:%x]...%s", prompt[:side], len(prompt), sum[:8], prompt[len(prompt)-side:])
}
