package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/service"
)

// ChunkRepository stores embedded content chunks in Postgres with pgvector
// and serves similarity queries over them.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// Upsert writes a batch of chunks. Chunk ids are deterministic per document
// and index, so re-ingestion overwrites rows in place.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	now := time.Now().UTC()
	for _, chunk := range chunks {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO content_chunks (id, content_id, chunk_index, user_id, title, type, link, excerpt, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE SET
			     content_id = EXCLUDED.content_id,
			     chunk_index = EXCLUDED.chunk_index,
			     user_id = EXCLUDED.user_id,
			     title = EXCLUDED.title,
			     type = EXCLUDED.type,
			     link = EXCLUDED.link,
			     excerpt = EXCLUDED.excerpt,
			     embedding = EXCLUDED.embedding`,
			chunk.ID,
			chunk.Metadata.DocID,
			chunk.Metadata.ChunkIndex,
			chunk.Metadata.UserID,
			chunk.Metadata.Title,
			string(chunk.Metadata.Type),
			nullableString(chunk.Metadata.Link),
			chunk.Excerpt,
			pgvector.NewVector(chunk.Embedding),
			now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Query returns the topK most similar chunks for the filter's owner, scored
// by cosine similarity in [-1, 1].
func (r *ChunkRepository) Query(ctx context.Context, embedding []float32, filter service.VectorFilter, topK int) ([]domain.SearchMatch, error) {
	query := `SELECT id, content_id, chunk_index, user_id, title, type, link, excerpt,
	                 1 - (embedding <=> $1) AS score
	          FROM content_chunks
	          WHERE user_id = $2`
	args := []any{pgvector.NewVector(embedding), filter.UserID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND type = $3`
	}

	args = append(args, topK)
	if filter.Type != "" {
		query += ` ORDER BY embedding <=> $1 LIMIT $4`
	} else {
		query += ` ORDER BY embedding <=> $1 LIMIT $3`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.SearchMatch
	for rows.Next() {
		var m domain.SearchMatch
		var link *string
		var contentType string
		if err := rows.Scan(
			&m.ID,
			&m.Metadata.DocID,
			&m.Metadata.ChunkIndex,
			&m.Metadata.UserID,
			&m.Metadata.Title,
			&contentType,
			&link,
			&m.Excerpt,
			&m.Score,
		); err != nil {
			return nil, err
		}
		m.Metadata.Type = domain.ContentType(contentType)
		if link != nil {
			m.Metadata.Link = *link
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteByDocID removes every chunk belonging to one content item
func (r *ChunkRepository) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM content_chunks WHERE content_id = $1`,
		docID,
	)
	return err
}
