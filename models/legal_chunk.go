package models

import (
	"github.com/google/uuid"
)

// LegalChunk represents a chunk of legal text from the knowledge base
type LegalChunk struct {
	ID             uuid.UUID         `json:"id"`
	Text           string            `json:"text"`
	SourceType     string            `json:"source_type"` // "legislacao", "jurisprudencia", "doutrina"
	SourceDocument string            `json:"source_document"`
	ChunkIndex     int               `json:"chunk_index"`
	Citation       *string           `json:"citation,omitempty"`
	SourceURL      *string           `json:"source_url,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Rank           float64           `json:"rank,omitempty"` // full-text search rank
}

// Snippet converts the chunk into a research snippet
func (c LegalChunk) Snippet(source string) Snippet {
	url := "kb://" + c.SourceDocument
	if c.SourceURL != nil && *c.SourceURL != "" {
		url = *c.SourceURL
	}
	title := c.SourceDocument
	if c.Citation != nil && *c.Citation != "" {
		title = *c.Citation
	}
	return Snippet{
		SourceURL: url,
		Title:     title,
		Text:      c.Text,
		Source:    source,
		Rank:      c.Rank,
	}
}
