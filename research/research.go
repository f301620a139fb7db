// Package research retrieves legal reference snippets for search phrases.
package research

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"lexdraft-backend/logger"
	"lexdraft-backend/metrics"
	"lexdraft-backend/models"
)

const (
	SourceKnowledgeBase = "knowledge_base"
	SourceWeb           = "web"
)

// Retriever returns ranked snippets for one search phrase.
// An empty result is valid.
type Retriever interface {
	Retrieve(ctx context.Context, phrase string) ([]models.Snippet, error)
}

// RetrieverFunc adapts a function to Retriever
type RetrieverFunc func(ctx context.Context, phrase string) ([]models.Snippet, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, phrase string) ([]models.Snippet, error) {
	return f(ctx, phrase)
}

// Gatherer queries every phrase concurrently
type Gatherer struct {
	retriever   Retriever
	perPhrase   int
	timeout     time.Duration
	concurrency int
	logger      logger.Logger
}

// GathererOption configures a Gatherer
type GathererOption func(*Gatherer)

func GatherWithLimit(n int) GathererOption {
	return func(g *Gatherer) {
		g.perPhrase = n
	}
}

func GatherWithTimeout(d time.Duration) GathererOption {
	return func(g *Gatherer) {
		g.timeout = d
	}
}

func GatherWithConcurrency(n int) GathererOption {
	return func(g *Gatherer) {
		g.concurrency = n
	}
}

func GatherWithLogger(log logger.Logger) GathererOption {
	return func(g *Gatherer) {
		g.logger = log
	}
}

// NewGatherer creates a gatherer over retriever
func NewGatherer(retriever Retriever, opts ...GathererOption) *Gatherer {
	g := &Gatherer{
		retriever: retriever,
		perPhrase: 3,
		timeout:   30 * time.Second,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather never fails: a phrase whose retrieval errors contributes no snippets
func (g *Gatherer) Gather(ctx context.Context, phrases []string) *models.Research {
	result := models.NewResearch(phrases)
	if g.retriever == nil || len(phrases) == 0 {
		return result
	}

	found := make([][]models.Snippet, len(phrases))
	var group errgroup.Group
	if g.concurrency > 0 {
		group.SetLimit(g.concurrency)
	}
	for i, phrase := range phrases {
		group.Go(func() error {
			callCtx := ctx
			if g.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, g.timeout)
				defer cancel()
			}

			snippets, err := g.retriever.Retrieve(callCtx, phrase)
			if err != nil {
				g.logger.Warn("Research retrieval failed", logger.Fields{
					"phrase": phrase,
					"error":  err.Error(),
				})
				return nil
			}
			if g.perPhrase > 0 && len(snippets) > g.perPhrase {
				snippets = snippets[:g.perPhrase]
			}
			found[i] = snippets
			return nil
		})
	}
	_ = group.Wait()

	for i, phrase := range phrases {
		result.Snippets[phrase] = found[i]
		perSource := make(map[string]int)
		for _, s := range found[i] {
			perSource[s.Source]++
		}
		for source, n := range perSource {
			metrics.ResearchResults.WithLabelValues(source).Observe(float64(n))
		}
	}
	g.logger.Info("Research gathered", logger.Fields{
		"phrases":  len(phrases),
		"snippets": len(result.All()),
	})
	return result
}
