// Package llm wraps the text-completion providers behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyCompletion = errors.New("completion returned no text")
	ErrBlocked         = errors.New("prompt blocked by provider")
	ErrMissingAPIKey   = errors.New("api key not configured")
)

// Params tunes a single completion call
type Params struct {
	Temperature float64
	MaxTokens   int
	System      string
}

// Completer turns a prompt into text
type Completer interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
}

// CompletionError reports a failed completion call.
// StatusCode is zero when the provider gave no HTTP status.
type CompletionError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s completion failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed
func (e *CompletionError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	switch e.StatusCode {
	case 400, 401, 403, 404:
		return false
	}
	return !errors.Is(e.Err, ErrBlocked)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, prompt string, params Params) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	return f(ctx, prompt, params)
}
