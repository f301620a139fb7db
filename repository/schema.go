package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const legalChunksTable = `
CREATE TABLE IF NOT EXISTS legal_chunks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),

    source_type VARCHAR(50) NOT NULL CHECK (source_type IN ('legislacao', 'jurisprudencia', 'doutrina')),
    source_document VARCHAR(255) NOT NULL,
    chunk_index INTEGER NOT NULL,

    chunk_text TEXT NOT NULL,
    citation TEXT,
    source_url TEXT,

    search_vector tsvector GENERATED ALWAYS AS (
        to_tsvector('portuguese', coalesce(citation, '') || ' ' || chunk_text)
    ) STORED,

    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),

    CONSTRAINT chunk_order_unique UNIQUE (source_document, chunk_index)
);`

// SchemaIndex is one index created alongside the legal_chunks table
type SchemaIndex struct {
	Name string
	SQL  string
}

var schemaIndexes = []SchemaIndex{
	{
		Name: "Full-text search (GIN)",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_search_vector ON legal_chunks USING gin (search_vector);",
	},
	{
		Name: "Type-based filtering",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_source_type ON legal_chunks(source_type);",
	},
	{
		Name: "Source document filtering",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_source_document ON legal_chunks(source_document);",
	},
}

// CreateSchema creates the knowledge-base table and its indexes.
// Index failures are reported through onIndex and do not abort.
func CreateSchema(ctx context.Context, db *pgxpool.Pool, onIndex func(idx SchemaIndex, err error)) error {
	if _, err := db.Exec(ctx, legalChunksTable); err != nil {
		return fmt.Errorf("failed to create legal_chunks table: %w", err)
	}
	for _, idx := range schemaIndexes {
		_, err := db.Exec(ctx, idx.SQL)
		if onIndex != nil {
			onIndex(idx, err)
		}
	}
	return nil
}
