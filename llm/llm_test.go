package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdraft-backend/logger"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	got      anthropic.MessageNewParams
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.got = params
	return m.response, m.err
}

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f fakeGenerator) GenerateContent(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>ok</p>", "<p>ok</p>"},
		{"```html\n<p>ok</p>\n```", "<p>ok</p>"},
		{"```\n<h2>Fatos</h2>\n```\n", "<h2>Fatos</h2>"},
		{"```html<p>ok</p>```", "<p>ok</p>"},
		{"  <p>ok</p>\n```", "<p>ok</p>"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFences(tt.in), tt.in)
	}
}

func TestTruncate(t *testing.T) {
	out, cut := Truncate("curto", 100)
	assert.False(t, cut)
	assert.Equal(t, "curto", out)

	out, cut = Truncate(strings.Repeat("ação", 10), 5)
	assert.True(t, cut)
	assert.True(t, strings.HasPrefix(out, "aç"))
	assert.Contains(t, out, "[Conteúdo truncado")

	out, cut = Truncate("qualquer", 0)
	assert.False(t, cut)
	assert.Equal(t, "qualquer", out)
}

func TestRetrying_SucceedsAfterTransientFailure(t *testing.T) {
	var calls int32
	next := CompleterFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", &CompletionError{Provider: "fake", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return "pronto", nil
	})

	r := NewRetrying(next, 3, time.Millisecond, logger.NewTestLogger(t))
	text, err := r.Complete(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, "pronto", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetrying_StopsOnClientError(t *testing.T) {
	var calls int32
	next := CompleterFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &CompletionError{Provider: "fake", StatusCode: 401, Err: errors.New("bad key")}
	})

	r := NewRetrying(next, 5, time.Millisecond, logger.NewNop())
	_, err := r.Complete(context.Background(), "p", Params{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 401, cerr.StatusCode)
}

func TestRetrying_GivesUp(t *testing.T) {
	next := CompleterFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		return "", &CompletionError{Provider: "fake", Err: ErrEmptyCompletion}
	})

	r := NewRetrying(next, 2, time.Millisecond, logger.NewNop())
	_, err := r.Complete(context.Background(), "p", Params{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestRetrying_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := CompleterFunc(func(ctx context.Context, prompt string, params Params) (string, error) {
		cancel()
		return "", errors.New("network down")
	})

	r := NewRetrying(next, 3, time.Hour, logger.NewNop())
	_, err := r.Complete(ctx, "p", Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestAnthropicCompleter(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "<p>Olá</p>"},
			{Type: "thinking", Text: "ignored"},
		},
	}}
	c := NewAnthropicCompleterWithMessager(mock, "")

	text, err := c.Complete(context.Background(), "redija", Params{Temperature: 0.2, System: "jurista"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Olá</p>", text)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), mock.got.MaxTokens)
	require.Len(t, mock.got.System, 1)
	assert.Equal(t, "jurista", mock.got.System[0].Text)
}

func TestAnthropicCompleter_Errors(t *testing.T) {
	c := NewAnthropicCompleterWithMessager(&mockMessager{err: errors.New("boom")}, "claude-test")
	_, err := c.Complete(context.Background(), "p", Params{})
	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ProviderAnthropic, cerr.Provider)

	c = NewAnthropicCompleterWithMessager(&mockMessager{response: &anthropic.Message{}}, "")
	_, err = c.Complete(context.Background(), "p", Params{})
	assert.True(t, errors.Is(err, ErrEmptyCompletion))

	_, err = NewAnthropicCompleter("  ", "")
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestGeminiCompleter(t *testing.T) {
	g := NewGeminiCompleter(nil, "", logger.NewTestLogger(t))

	g.newModel = func(Params) contentGenerator {
		return fakeGenerator{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Parts: []genai.Part{genai.Text("<h2>Fatos</h2>"), genai.Text("<p>x</p>")}},
				FinishReason: genai.FinishReasonStop,
			}},
		}}
	}
	text, err := g.Complete(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, "<h2>Fatos</h2><p>x</p>", text)

	g.newModel = func(Params) contentGenerator {
		return fakeGenerator{resp: &genai.GenerateContentResponse{
			PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
		}}
	}
	_, err = g.Complete(context.Background(), "p", Params{})
	assert.True(t, errors.Is(err, ErrBlocked))
	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.False(t, cerr.Retryable())

	g.newModel = func(Params) contentGenerator {
		return fakeGenerator{resp: &genai.GenerateContentResponse{}}
	}
	_, err = g.Complete(context.Background(), "p", Params{})
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}
