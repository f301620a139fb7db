package repository

import (
	"context"
	"fmt"
	"strings"

	"lexdraft-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sourceKnowledgeBase = "knowledge_base"
	defaultSearchLimit  = 3
)

// LegalChunkRepository handles database operations for legal chunks
type LegalChunkRepository struct {
	db    *pgxpool.Pool
	limit int
}

// NewLegalChunkRepository creates a new legal chunk repository.
// limit caps the chunks returned per search phrase.
func NewLegalChunkRepository(db *pgxpool.Pool, limit int) *LegalChunkRepository {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return &LegalChunkRepository{db: db, limit: limit}
}

// Retrieve implements research.Retriever over the knowledge base
func (r *LegalChunkRepository) Retrieve(ctx context.Context, phrase string) ([]models.Snippet, error) {
	chunks, err := r.Search(ctx, phrase, "", r.limit)
	if err != nil {
		return nil, err
	}
	snippets := make([]models.Snippet, len(chunks))
	for i, chunk := range chunks {
		snippets[i] = chunk.Snippet(sourceKnowledgeBase)
	}
	return snippets, nil
}

// Search performs a Portuguese full-text search for legal chunks.
// query: free-text search phrase
// sourceType: optional filter ("legislacao", "jurisprudencia", "doutrina")
// limit: maximum number of chunks to return
func (r *LegalChunkRepository) Search(
	ctx context.Context,
	query string,
	sourceType string,
	limit int,
) ([]models.LegalChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	args := []interface{}{query, limit}
	typeFilter := ""
	if sourceType != "" {
		typeFilter = "AND source_type = $3"
		args = append(args, sourceType)
	}

	sql := fmt.Sprintf(`
		SELECT
			id,
			chunk_text,
			source_type,
			source_document,
			chunk_index,
			citation,
			source_url,
			ts_rank(search_vector, q) AS rank
		FROM legal_chunks, plainto_tsquery('portuguese', $1) AS q
		WHERE
			search_vector @@ q
			%s
		ORDER BY
			rank DESC, source_document, chunk_index
		LIMIT $2`, typeFilter)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.LegalChunk
	for rows.Next() {
		var chunk models.LegalChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.Text,
			&chunk.SourceType,
			&chunk.SourceDocument,
			&chunk.ChunkIndex,
			&chunk.Citation,
			&chunk.SourceURL,
			&chunk.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legal chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legal chunks: %w", err)
	}

	return chunks, nil
}

// Upsert inserts a chunk or replaces the text of an existing one
func (r *LegalChunkRepository) Upsert(ctx context.Context, chunk models.LegalChunk) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO legal_chunks (id, source_type, source_document, chunk_index, chunk_text, citation, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_document, chunk_index) DO UPDATE SET
			chunk_text = EXCLUDED.chunk_text,
			citation = EXCLUDED.citation,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()`,
		chunk.ID, chunk.SourceType, chunk.SourceDocument, chunk.ChunkIndex, chunk.Text, chunk.Citation, chunk.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert legal chunk %s#%d: %w", chunk.SourceDocument, chunk.ChunkIndex, err)
	}
	return nil
}
