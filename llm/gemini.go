package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"lexdraft-backend/logger"
)

const ProviderGemini = "gemini"

// DefaultGeminiModel is used when no model name is configured
const DefaultGeminiModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiCompleter calls Google Gemini through generative-ai-go
type GeminiCompleter struct {
	client   *genai.Client
	model    string
	newModel func(params Params) contentGenerator
	logger   logger.Logger
}

// NewGeminiClient creates the underlying SDK client
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

// NewGeminiCompleter creates a completer bound to one model
func NewGeminiCompleter(client *genai.Client, model string, log logger.Logger) *GeminiCompleter {
	if model == "" {
		model = DefaultGeminiModel
	}
	if log == nil {
		log = logger.NewNop()
	}
	g := &GeminiCompleter{client: client, model: model, logger: log}
	g.newModel = g.generativeModel
	return g
}

func (g *GeminiCompleter) generativeModel(params Params) contentGenerator {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(float32(params.Temperature))
	if params.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(params.MaxTokens))
	}
	if params.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(params.System)}}
	}
	return m
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	resp, err := g.newModel(params).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &CompletionError{Provider: ProviderGemini, StatusCode: googleStatus(err), Err: err}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", &CompletionError{
			Provider: ProviderGemini,
			Err:      fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason),
		}
	}
	if len(resp.Candidates) == 0 {
		return "", &CompletionError{Provider: ProviderGemini, Err: ErrEmptyCompletion}
	}

	var text strings.Builder
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			g.logger.Warn("Candidate finished early", logger.Fields{"candidate": i, "finish_reason": cand.FinishReason.String()})
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", &CompletionError{Provider: ProviderGemini, Err: ErrEmptyCompletion}
	}
	return text.String(), nil
}

func googleStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
