package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

var ErrWebSearchDisabled = errors.New("web search not configured")

// WebSearchConfig holds Programmable Search Engine settings
type WebSearchConfig struct {
	APIKey     string
	EngineID   string
	MaxResults int
	// Endpoint overrides the API base URL
	Endpoint string
	// Sites restricts the query to these domains, e.g. "jusbrasil.com.br"
	Sites []string
}

// WebSearch queries Google Programmable Search for legal references
type WebSearch struct {
	service *customsearch.Service
	config  WebSearchConfig
	logger  logger.Logger
}

// NewWebSearch creates the search client. extra options are appended after
// the API key and endpoint options.
func NewWebSearch(ctx context.Context, cfg WebSearchConfig, log logger.Logger, extra ...option.ClientOption) (*WebSearch, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, ErrWebSearchDisabled
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > 10 {
		cfg.MaxResults = 5
	}
	if log == nil {
		log = logger.NewNop()
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}
	return &WebSearch{service: svc, config: cfg, logger: log}, nil
}

func (w *WebSearch) Retrieve(ctx context.Context, phrase string) ([]models.Snippet, error) {
	query := w.buildQuery(phrase)
	resp, err := w.service.Cse.List().
		Cx(w.config.EngineID).
		Q(query).
		Num(int64(w.config.MaxResults)).
		Lr("lang_pt").
		Gl("br").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("web search for %q failed: %w", phrase, err)
	}

	snippets := w.processResults(resp.Items)
	w.logger.Debug("Web search completed", logger.Fields{
		"query":       query,
		"resultCount": len(snippets),
	})
	return snippets, nil
}

func (w *WebSearch) buildQuery(phrase string) string {
	query := strings.Join(strings.Fields(phrase), " ")
	if len(w.config.Sites) == 0 {
		return query
	}
	sites := make([]string, len(w.config.Sites))
	for i, s := range w.config.Sites {
		sites[i] = "site:" + s
	}
	return query + " (" + strings.Join(sites, " OR ") + ")"
}

func (w *WebSearch) processResults(items []*customsearch.Result) []models.Snippet {
	seen := make(map[string]bool)
	var snippets []models.Snippet
	for _, item := range items {
		if item == nil || item.Link == "" {
			continue
		}
		// skip PDFs and other non-HTML documents
		if item.Mime != "" && !strings.Contains(item.Mime, "html") {
			continue
		}
		if seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		rank := 1.0
		if strings.Contains(item.Link, ".jus.br") || strings.Contains(item.Link, ".gov.br") {
			rank += 0.2
		}
		snippets = append(snippets, models.Snippet{
			SourceURL: item.Link,
			Title:     item.Title,
			Text:      strings.TrimSpace(item.Snippet),
			Source:    SourceWeb,
			Rank:      rank,
		})
	}
	return snippets
}
