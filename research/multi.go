package research

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

// Multi queries several retrievers and merges their results by descending
// rank. Ties keep retriever order. A repeated source URL keeps its
// highest-ranked copy.
type Multi struct {
	retrievers []Retriever
	logger     logger.Logger
}

// NewMulti combines retrievers. nil entries are skipped.
func NewMulti(log logger.Logger, retrievers ...Retriever) *Multi {
	if log == nil {
		log = logger.NewNop()
	}
	m := &Multi{logger: log}
	for _, r := range retrievers {
		if r != nil {
			m.retrievers = append(m.retrievers, r)
		}
	}
	return m
}

// Len returns the number of underlying retrievers
func (m *Multi) Len() int {
	return len(m.retrievers)
}

// Retrieve fails only when every retriever fails
func (m *Multi) Retrieve(ctx context.Context, phrase string) ([]models.Snippet, error) {
	results := make([][]models.Snippet, len(m.retrievers))
	errs := make([]error, len(m.retrievers))

	var group errgroup.Group
	for i, r := range m.retrievers {
		group.Go(func() error {
			results[i], errs[i] = r.Retrieve(ctx, phrase)
			return nil
		})
	}
	_ = group.Wait()

	var all []models.Snippet
	failures := 0
	for i := range m.retrievers {
		if errs[i] != nil {
			failures++
			m.logger.Warn("Retriever failed", logger.Fields{"phrase": phrase, "error": errs[i].Error()})
			continue
		}
		all = append(all, results[i]...)
	}
	if failures > 0 && failures == len(m.retrievers) {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(all, func(a, b int) bool { return all[a].Rank > all[b].Rank })

	seen := make(map[string]bool, len(all))
	merged := make([]models.Snippet, 0, len(all))
	for _, s := range all {
		id := s.SourceURL
		if id == "" {
			id = s.Text
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, s)
	}
	return merged, nil
}
