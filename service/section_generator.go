package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"

	"lexdraft-backend/llm"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

const (
	defaultSectionTimeout     = 120 * time.Second
	defaultSectionTemperature = 0.3
)

const systemInstruction = "Você é um advogado brasileiro experiente na redação de peças e documentos jurídicos. Use linguagem jurídica formal, objetiva e sem adjetivação excessiva."

var htmlTagPattern = regexp.MustCompile(`(?i)<\s*(h[1-6]|p|ul|ol|li|strong|em|b|i|blockquote|table|br)\b`)

// SectionGenerator fans section prompts out to the completion service
type SectionGenerator struct {
	completer   llm.Completer
	timeout     time.Duration
	concurrency int
	params      llm.Params
	markdown    goldmark.Markdown
	logger      logger.Logger
}

// GeneratorOption configures a SectionGenerator
type GeneratorOption func(*SectionGenerator)

// GeneratorWithTimeout bounds each completion call
func GeneratorWithTimeout(d time.Duration) GeneratorOption {
	return func(g *SectionGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// GeneratorWithConcurrency caps in-flight completion calls; 0 means one per section
func GeneratorWithConcurrency(n int) GeneratorOption {
	return func(g *SectionGenerator) {
		g.concurrency = n
	}
}

// GeneratorWithParams overrides the completion parameters. Zero fields keep
// the defaults, so the drafting system instruction survives a temperature-only
// override.
func GeneratorWithParams(p llm.Params) GeneratorOption {
	return func(g *SectionGenerator) {
		if p.Temperature != 0 {
			g.params.Temperature = p.Temperature
		}
		if p.MaxTokens != 0 {
			g.params.MaxTokens = p.MaxTokens
		}
		if p.System != "" {
			g.params.System = p.System
		}
	}
}

// GeneratorWithLogger sets the logger
func GeneratorWithLogger(log logger.Logger) GeneratorOption {
	return func(g *SectionGenerator) {
		if log != nil {
			g.logger = log
		}
	}
}

// NewSectionGenerator creates a generator backed by completer
func NewSectionGenerator(completer llm.Completer, opts ...GeneratorOption) *SectionGenerator {
	g := &SectionGenerator{
		completer: completer,
		timeout:   defaultSectionTimeout,
		params:    llm.Params{Temperature: defaultSectionTemperature, System: systemInstruction},
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateAll issues every section prompt concurrently and waits for all of them.
// A failing section never cancels the others; it is returned tagged as failed.
func (g *SectionGenerator) GenerateAll(ctx context.Context, specs []models.SectionSpec) map[string]models.GeneratedSection {
	results := make([]models.GeneratedSection, len(specs))

	var group errgroup.Group
	if g.concurrency > 0 {
		group.SetLimit(g.concurrency)
	}
	for i, spec := range specs {
		group.Go(func() error {
			results[i] = g.generate(ctx, spec)
			return nil
		})
	}
	_ = group.Wait()

	out := make(map[string]models.GeneratedSection, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func (g *SectionGenerator) generate(ctx context.Context, spec models.SectionSpec) (result models.GeneratedSection) {
	log := logger.ForSection(g.logger, spec.Name)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Section generation panicked", logger.Fields{"panic": r})
			result = models.SectionFailed(spec.Name, fmt.Sprintf("unexpected failure: %v", r))
		}
	}()

	if g.completer == nil {
		return models.SectionFailed(spec.Name, "completion service not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.completer.Complete(callCtx, spec.Prompt, g.params)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("timed out after %s", g.timeout)
		}
		log.WithError(err).Warn("Section generation failed", nil)
		return models.SectionFailed(spec.Name, reason)
	}

	html, err := g.toHTML(llm.StripCodeFences(text))
	if err != nil {
		return models.SectionFailed(spec.Name, err.Error())
	}
	if html == "" {
		return models.SectionFailed(spec.Name, llm.ErrEmptyCompletion.Error())
	}

	log.Debug("Section generated", logger.Fields{
		"chars":    len(html),
		"duration": time.Since(start).String(),
	})
	return models.SectionOK(spec.Name, html)
}

// toHTML converts markdown output to HTML when the model ignored the format rules
func (g *SectionGenerator) toHTML(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || htmlTagPattern.MatchString(text) {
		return text, nil
	}
	var buf strings.Builder
	if err := g.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
