package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const ProviderAnthropic = "anthropic"

const defaultAnthropicMaxTokens = 8192

// AnthropicMessager is the subset of the SDK messages service used here
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicCompleter calls the Anthropic Messages API
type AnthropicCompleter struct {
	messages AnthropicMessager
	model    anthropic.Model
}

// NewAnthropicCompleter creates a completer from an API key
func NewAnthropicCompleter(apiKey, model string) (*AnthropicCompleter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicCompleterWithMessager(&c.Messages, model), nil
}

// NewAnthropicCompleterWithMessager creates a completer over an existing messages service
func NewAnthropicCompleterWithMessager(messages AnthropicMessager, model string) *AnthropicCompleter {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeSonnet4_20250514
	}
	return &AnthropicCompleter{messages: messages, model: m}
}

func (a *AnthropicCompleter) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	maxTokens := int64(params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	req := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(params.Temperature),
	}
	if params.System != "" {
		req.System = []anthropic.TextBlockParam{{Text: params.System}}
	}

	resp, err := a.messages.New(ctx, req)
	if err != nil {
		return "", &CompletionError{Provider: ProviderAnthropic, StatusCode: anthropicStatus(err), Err: err}
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &CompletionError{Provider: ProviderAnthropic, Err: ErrEmptyCompletion}
	}
	return sb.String(), nil
}

func anthropicStatus(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
